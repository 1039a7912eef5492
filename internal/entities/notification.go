package entities

import "time"

// NotificationTask is one queued outbound message, delivered after the transition commits.
type NotificationTask struct {
	ID           string    `json:"id"`
	Channel      string    `json:"channel"`
	Recipient    string    `json:"recipient"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	HTML         string    `json:"html,omitempty"`
	JobID        string    `json:"jobId,omitempty"`
	TechnicianID string    `json:"technicianId,omitempty"`
	Attempts     int       `json:"attempts"`
	LastError    string    `json:"lastError,omitempty"`
	NotBefore    time.Time `json:"notBefore"`
	CreatedAt    time.Time `json:"createdAt"`
}
