package dto

import "github.com/shopspring/decimal"

// TechnicianRosterDTO is one technician row pushed by the HR/payroll system. ID is the
// stable identifier shared between both systems.
type TechnicianRosterDTO struct {
	ID               string              `json:"id" validate:"required"`
	Name             string              `json:"name" validate:"required"`
	Phone            *string             `json:"phone,omitempty" validate:"omitempty,phone"`
	Email            *string             `json:"email,omitempty" validate:"omitempty,email"`
	UserID           *string             `json:"userId,omitempty"`
	MaxDailyJobs     int                 `json:"maxDailyJobs" validate:"gte=0"`
	ApprovedJobTypes []string            `json:"approvedJobTypes,omitempty"`
	HourlyRate       decimal.NullDecimal `json:"hourlyRate" validate:"omitempty,gte=0"`
	CommissionRate   decimal.NullDecimal `json:"commissionRate" validate:"omitempty,gte=0,lte=1"`
}

type SalespersonRosterDTO struct {
	ID             string              `json:"id" validate:"required"`
	Name           string              `json:"name" validate:"required"`
	Email          *string             `json:"email,omitempty" validate:"omitempty,email"`
	CommissionRate decimal.NullDecimal `json:"commissionRate" validate:"omitempty,gte=0,lte=1"`
}

type TechnicianRosterBatchDTO struct {
	Items []TechnicianRosterDTO `json:"items" validate:"required,dive"`
}

type SalespersonRosterBatchDTO struct {
	Items []SalespersonRosterDTO `json:"items" validate:"required,dive"`
}

// SyncResultDTO counts what a roster batch did.
type SyncResultDTO struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}
