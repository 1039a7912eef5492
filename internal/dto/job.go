package dto

import (
	"field-crm/internal/entities"

	"github.com/shopspring/decimal"
)

type CreateJobDTO struct {
	CustomerName  string  `json:"customerName" validate:"required,min=2,max=255"`
	CustomerPhone *string `json:"customerPhone,omitempty" validate:"omitempty,phone"`
	CustomerEmail *string `json:"customerEmail,omitempty" validate:"omitempty,email"`
	Address       string  `json:"address" validate:"required,min=3"`
	City          *string `json:"city,omitempty"`
	Zip           *string `json:"zip,omitempty" validate:"omitempty,max=10"`
	ServiceType   string  `json:"serviceType" validate:"required"`
	LeadID        *string `json:"leadId,omitempty"`
	SalespersonID *string `json:"salespersonId,omitempty"`
	Priority      string  `json:"priority,omitempty" validate:"omitempty,job_priority"`
	ActorID       string  `json:"actorId,omitempty"`
}

type JobFilter struct {
	Status       string
	TechnicianID string
	Limit        uint64
	Offset       uint64
}

type JobListResponseDTO struct {
	List       []entities.Job `json:"list"`
	TotalCount uint64         `json:"totalCount"`
}

// TransitionDTO is the payload of transitions without extra data (confirm, en_route, start).
type TransitionDTO struct {
	ActorID string `json:"actorId,omitempty"`
}

type AssignJobDTO struct {
	TechnicianID string `json:"technicianId" validate:"required"`
	ActorID      string `json:"actorId,omitempty"`
}

type ArriveJobDTO struct {
	ActorID   string   `json:"actorId,omitempty"`
	Latitude  *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

type CancelJobDTO struct {
	ActorID string `json:"actorId,omitempty"`
	Reason  string `json:"reason" validate:"required,max=1000"`
}

type QuoteSentDTO struct {
	ActorID string           `json:"actorId,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	Note    *string          `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// CostUpdateDTO carries expense and revenue fields. An absent or null field keeps the
// value already recorded on the job.
type CostUpdateDTO struct {
	LaborHours    decimal.NullDecimal `json:"laborHours" validate:"omitempty,gte=0"`
	LaborRate     decimal.NullDecimal `json:"laborRate" validate:"omitempty,gte=0"`
	LaborCost     decimal.NullDecimal `json:"laborCost" validate:"omitempty,gte=0"`
	MaterialsCost decimal.NullDecimal `json:"materialsCost" validate:"omitempty,gte=0"`
	TravelExpense decimal.NullDecimal `json:"travelExpense" validate:"omitempty,gte=0"`
	EquipmentCost decimal.NullDecimal `json:"equipmentCost" validate:"omitempty,gte=0"`
	OtherExpenses decimal.NullDecimal `json:"otherExpenses" validate:"omitempty,gte=0"`
	TotalRevenue  decimal.NullDecimal `json:"totalRevenue" validate:"omitempty,gte=0"`
}

func (c CostUpdateDTO) HasAny() bool {
	return c.LaborHours.Valid || c.LaborRate.Valid || c.LaborCost.Valid ||
		c.MaterialsCost.Valid || c.TravelExpense.Valid || c.EquipmentCost.Valid ||
		c.OtherExpenses.Valid || c.TotalRevenue.Valid
}

type UpdateCostsDTO struct {
	ActorID string `json:"actorId,omitempty"`
	CostUpdateDTO
}

type CompleteJobDTO struct {
	ActorID string `json:"actorId,omitempty"`
	CostUpdateDTO
}

// JobResponseDTO is a job plus the lifecycle actions currently open to it.
type JobResponseDTO struct {
	entities.Job
	AllowedTransitions []string `json:"allowedTransitions"`
}
