package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"field-crm/pkg/constants"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type JobTimelineEvent struct {
	ID          string           `db:"id" json:"id"`
	JobID       string           `db:"job_id" json:"jobId"`
	EventType   string           `db:"event_type" json:"eventType"`
	Description string           `db:"description" json:"description"`
	CreatedBy   null.String      `db:"created_by" json:"createdBy"`
	Metadata    TimelineMetadata `db:"metadata" json:"metadata"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

// TimelineMetadata is the payload attached to a timeline event. The concrete type is
// determined by the event type.
type TimelineMetadata interface {
	EventType() string
}

type AssignedMetadata struct {
	TechnicianID string      `json:"technicianId"`
	DispatcherID null.String `json:"dispatcherId"`
}

func (AssignedMetadata) EventType() string { return constants.EventAssigned }

// ArrivedMetadata carries the raw GPS fix and the geofence result. Verification fields
// stay null when either side had no coordinates.
type ArrivedMetadata struct {
	Lat             null.Float64 `json:"lat"`
	Lng             null.Float64 `json:"lng"`
	ArrivalVerified null.Bool    `json:"arrivalVerified"`
	ArrivalDistance null.Float64 `json:"arrivalDistance"`
}

func (ArrivedMetadata) EventType() string { return constants.EventArrived }

type FinancialSnapshot struct {
	TotalCost    decimal.NullDecimal `json:"totalCost"`
	TotalRevenue decimal.NullDecimal `json:"totalRevenue"`
	Profit       decimal.NullDecimal `json:"profit"`
}

type CompletedMetadata struct {
	FinancialSnapshot
}

func (CompletedMetadata) EventType() string { return constants.EventCompleted }

type CostsUpdatedMetadata struct {
	FinancialSnapshot
}

func (CostsUpdatedMetadata) EventType() string { return constants.EventCostsUpdated }

type CancelledMetadata struct {
	Reason            string      `json:"reason"`
	FreedTechnicianID null.String `json:"freedTechnicianId"`
}

func (CancelledMetadata) EventType() string { return constants.EventCancelled }

type QuoteSentMetadata struct {
	Amount decimal.NullDecimal `json:"amount"`
	Note   null.String         `json:"note"`
}

func (QuoteSentMetadata) EventType() string { return constants.EventQuoteSent }

// SnapshotOf copies the reconciled totals of a job.
func SnapshotOf(job *Job) FinancialSnapshot {
	return FinancialSnapshot{
		TotalCost:    job.TotalCost,
		TotalRevenue: job.TotalRevenue,
		Profit:       job.Profit,
	}
}

// EncodeMetadata serialises a payload for the JSONB column. A nil payload stores NULL.
func EncodeMetadata(m TimelineMetadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// DecodeMetadata restores the typed payload for eventType. Event types without a payload
// decode to nil.
func DecodeMetadata(eventType string, raw []byte) (TimelineMetadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var target TimelineMetadata
	switch eventType {
	case constants.EventAssigned:
		var m AssignedMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	case constants.EventArrived:
		var m ArrivedMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	case constants.EventCompleted:
		var m CompletedMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	case constants.EventCostsUpdated:
		var m CostsUpdatedMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	case constants.EventCancelled:
		var m CancelledMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	case constants.EventQuoteSent:
		var m QuoteSentMetadata
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode %s metadata: %w", eventType, err)
		}
		target = m
	default:
		return nil, nil
	}
	return target, nil
}
