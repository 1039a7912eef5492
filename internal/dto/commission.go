package dto

import "field-crm/internal/entities"

type CalculateCommissionDTO struct {
	SalespersonID string `json:"salespersonId" validate:"required"`
}

type UpdateCommissionStatusDTO struct {
	Status string `json:"status" validate:"required,commission_status"`
}

// CommissionResultDTO wraps a calculation outcome. Commission is nil when the job does not
// qualify yet.
type CommissionResultDTO struct {
	Calculated bool                      `json:"calculated"`
	Commission *entities.SalesCommission `json:"commission"`
}

type CommissionReportFilter struct {
	Status        string
	SalespersonID string
}
