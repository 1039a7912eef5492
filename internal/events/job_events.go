package events

import (
	"field-crm/internal/entities"
)

const JobTransitionedEventName = "job.transitioned"

// JobTransitionedEvent is published after a lifecycle change has been committed.
type JobTransitionedEvent struct {
	Job        entities.Job
	Timeline   entities.JobTimelineEvent
	Transition string
	ActorID    string
	// Technician is set for transitions that touched a technician record.
	Technician *entities.Technician
}

func (e JobTransitionedEvent) Name() string {
	return JobTransitionedEventName
}
