package constants

// Job statuses, stored verbatim in jobs.status.
const (
	JobStatusPending    = "pending"
	JobStatusAssigned   = "assigned"
	JobStatusConfirmed  = "confirmed"
	JobStatusEnRoute    = "en_route"
	JobStatusOnSite     = "on_site"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusCancelled  = "cancelled"
)

var JobStatuses = []string{
	JobStatusPending,
	JobStatusAssigned,
	JobStatusConfirmed,
	JobStatusEnRoute,
	JobStatusOnSite,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusCancelled,
}

// Terminal statuses accept no further transitions.
var TerminalJobStatuses = []string{
	JobStatusCompleted,
	JobStatusCancelled,
}

func IsJobStatus(code string) bool {
	return contains(JobStatuses, code)
}

func IsTerminalJobStatus(code string) bool {
	return contains(TerminalJobStatuses, code)
}

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func IsJobPriority(code string) bool {
	return contains([]string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}, code)
}

func contains(list []string, code string) bool {
	for _, s := range list {
		if s == code {
			return true
		}
	}
	return false
}
