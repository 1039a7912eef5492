package dto

import "time"

// JobBoardUpdateDTO is the frame pushed to live dispatch boards after a transition.
type JobBoardUpdateDTO struct {
	JobID                string    `json:"jobId"`
	Status               string    `json:"status"`
	Transition           string    `json:"transition"`
	ActorID              string    `json:"actorId"`
	AssignedTechnicianID *string   `json:"assignedTechnicianId,omitempty"`
	AllowedTransitions   []string  `json:"allowedTransitions"`
	OccurredAt           time.Time `json:"occurredAt"`
}
