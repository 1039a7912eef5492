package entities

import (
	"time"

	"field-crm/pkg/geo"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type Technician struct {
	ID                 string              `db:"id" json:"id"`
	Name               string              `db:"name" json:"name"`
	Phone              null.String         `db:"phone" json:"phone"`
	Email              null.String         `db:"email" json:"email"`
	UserID             null.String         `db:"user_id" json:"userId"`
	Status             string              `db:"status" json:"status"`
	CurrentJobID       null.String         `db:"current_job_id" json:"currentJobId"`
	CompletedJobsToday int                 `db:"completed_jobs_today" json:"completedJobsToday"`
	MaxDailyJobs       int                 `db:"max_daily_jobs" json:"maxDailyJobs"`
	ApprovedJobTypes   []string            `db:"approved_job_types" json:"approvedJobTypes"`
	HourlyRate         decimal.NullDecimal `db:"hourly_rate" json:"hourlyRate"`
	CommissionRate     decimal.NullDecimal `db:"commission_rate" json:"commissionRate"`
	LastLocationLat    null.Float64        `db:"last_location_lat" json:"lastLocationLat"`
	LastLocationLng    null.Float64        `db:"last_location_lng" json:"lastLocationLng"`
	LastLocationUpdate null.Time           `db:"last_location_update" json:"lastLocationUpdate"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`
}

// IsApprovedFor reports whether the technician may take jobs of serviceType.
// An empty approval list means every type is allowed.
func (t *Technician) IsApprovedFor(serviceType string) bool {
	if len(t.ApprovedJobTypes) == 0 {
		return true
	}
	for _, s := range t.ApprovedJobTypes {
		if s == serviceType {
			return true
		}
	}
	return false
}

func (t *Technician) HasReachedDailyCap() bool {
	return t.MaxDailyJobs > 0 && t.CompletedJobsToday >= t.MaxDailyJobs
}

type TechnicianLocation struct {
	ID           string       `db:"id" json:"id"`
	TechnicianID string       `db:"technician_id" json:"technicianId"`
	Latitude     float64      `db:"latitude" json:"latitude"`
	Longitude    float64      `db:"longitude" json:"longitude"`
	Accuracy     null.Float64 `db:"accuracy" json:"accuracy"`
	Speed        null.Float64 `db:"speed" json:"speed"`
	Heading      null.Float64 `db:"heading" json:"heading"`
	Altitude     null.Float64 `db:"altitude" json:"altitude"`
	IsMoving     bool         `db:"is_moving" json:"isMoving"`
	JobID        null.String  `db:"job_id" json:"jobId"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

func (l *TechnicianLocation) Coordinates() geo.Coordinates {
	return geo.Coordinates{Lat: l.Latitude, Lng: l.Longitude}
}
