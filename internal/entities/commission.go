package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type Salesperson struct {
	ID             string              `db:"id" json:"id"`
	Name           string              `db:"name" json:"name"`
	Email          null.String         `db:"email" json:"email"`
	CommissionRate decimal.NullDecimal `db:"commission_rate" json:"commissionRate"`
	CreatedAt      time.Time           `db:"created_at" json:"createdAt"`
}

// SalesCommission freezes the job financials and the salesperson rate at calculation time.
type SalesCommission struct {
	ID               string          `db:"id" json:"id"`
	SalespersonID    string          `db:"salesperson_id" json:"salespersonId"`
	JobID            string          `db:"job_id" json:"jobId"`
	LeadID           null.String     `db:"lead_id" json:"leadId"`
	JobRevenue       decimal.Decimal `db:"job_revenue" json:"jobRevenue"`
	LaborCost        decimal.Decimal `db:"labor_cost" json:"laborCost"`
	MaterialsCost    decimal.Decimal `db:"materials_cost" json:"materialsCost"`
	TravelExpense    decimal.Decimal `db:"travel_expense" json:"travelExpense"`
	EquipmentCost    decimal.Decimal `db:"equipment_cost" json:"equipmentCost"`
	OtherExpenses    decimal.Decimal `db:"other_expenses" json:"otherExpenses"`
	TotalCosts       decimal.Decimal `db:"total_costs" json:"totalCosts"`
	NetProfit        decimal.Decimal `db:"net_profit" json:"netProfit"`
	CommissionRate   decimal.Decimal `db:"commission_rate" json:"commissionRate"`
	CommissionAmount decimal.Decimal `db:"commission_amount" json:"commissionAmount"`
	Status           string          `db:"status" json:"status"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

type ContactAttempt struct {
	ID           string      `db:"id" json:"id"`
	TechnicianID string      `db:"technician_id" json:"technicianId"`
	JobID        null.String `db:"job_id" json:"jobId"`
	Channel      string      `db:"channel" json:"channel"`
	Recipient    null.String `db:"recipient" json:"recipient"`
	Subject      null.String `db:"subject" json:"subject"`
	Success      bool        `db:"success" json:"success"`
	MessageID    null.String `db:"message_id" json:"messageId"`
	Error        null.String `db:"error" json:"error"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}
