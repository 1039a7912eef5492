package services

import (
	"field-crm/pkg/constants"
)

// Lifecycle action names, as used in routes, metrics and published events.
const (
	TransitionCreate      = "create"
	TransitionAssign      = "assign"
	TransitionConfirm     = "confirm"
	TransitionEnRoute     = "en_route"
	TransitionArrive      = "arrive"
	TransitionStart       = "start"
	TransitionComplete    = "complete"
	TransitionCancel      = "cancel"
	TransitionUpdateCosts = "update_costs"
	TransitionQuoteSent   = "quote_sent"
)

// transitionRule describes one lifecycle action: the statuses it may start from, the
// status it lands in and the timeline event it appends. An empty target keeps the status.
type transitionRule struct {
	name  string
	from  []string
	to    string
	event string
}

var nonTerminalStatuses = []string{
	constants.JobStatusPending,
	constants.JobStatusAssigned,
	constants.JobStatusConfirmed,
	constants.JobStatusEnRoute,
	constants.JobStatusOnSite,
	constants.JobStatusInProgress,
}

var (
	ruleAssign = transitionRule{
		name:  TransitionAssign,
		from:  []string{constants.JobStatusPending, constants.JobStatusAssigned},
		to:    constants.JobStatusAssigned,
		event: constants.EventAssigned,
	}
	ruleConfirm = transitionRule{
		name:  TransitionConfirm,
		from:  []string{constants.JobStatusAssigned},
		to:    constants.JobStatusConfirmed,
		event: constants.EventConfirmed,
	}
	ruleEnRoute = transitionRule{
		name:  TransitionEnRoute,
		from:  []string{constants.JobStatusConfirmed},
		to:    constants.JobStatusEnRoute,
		event: constants.EventEnRoute,
	}
	ruleArrive = transitionRule{
		name:  TransitionArrive,
		from:  []string{constants.JobStatusEnRoute},
		to:    constants.JobStatusOnSite,
		event: constants.EventArrived,
	}
	ruleStart = transitionRule{
		name:  TransitionStart,
		from:  []string{constants.JobStatusOnSite},
		to:    constants.JobStatusInProgress,
		event: constants.EventStarted,
	}
	ruleComplete = transitionRule{
		name:  TransitionComplete,
		from:  []string{constants.JobStatusInProgress},
		to:    constants.JobStatusCompleted,
		event: constants.EventCompleted,
	}
	ruleCancel = transitionRule{
		name:  TransitionCancel,
		from:  nonTerminalStatuses,
		to:    constants.JobStatusCancelled,
		event: constants.EventCancelled,
	}
	// Costs may still be corrected after completion, never on a cancelled job.
	ruleUpdateCosts = transitionRule{
		name:  TransitionUpdateCosts,
		from:  append(append([]string{}, nonTerminalStatuses...), constants.JobStatusCompleted),
		event: constants.EventCostsUpdated,
	}
	ruleQuoteSent = transitionRule{
		name:  TransitionQuoteSent,
		from:  nonTerminalStatuses,
		event: constants.EventQuoteSent,
	}
)

func (r transitionRule) allows(status string) bool {
	for _, s := range r.from {
		if s == status {
			return true
		}
	}
	return false
}

// target is the status after the rule applies to a job currently in status.
func (r transitionRule) target(status string) string {
	if r.to == "" {
		return status
	}
	return r.to
}

var lifecycleRules = []transitionRule{
	ruleAssign, ruleConfirm, ruleEnRoute, ruleArrive, ruleStart, ruleComplete, ruleCancel,
}

// AllowedTransitions lists the lifecycle actions available from status, in lifecycle order.
func AllowedTransitions(status string) []string {
	var out []string
	for _, r := range lifecycleRules {
		if r.allows(status) {
			out = append(out, r.name)
		}
	}
	return out
}
