package entities

import (
	"time"

	"field-crm/pkg/geo"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
)

type Job struct {
	ID            string      `db:"id" json:"id"`
	CustomerName  string      `db:"customer_name" json:"customerName"`
	CustomerPhone null.String `db:"customer_phone" json:"customerPhone"`
	CustomerEmail null.String `db:"customer_email" json:"customerEmail"`
	Address       string      `db:"address" json:"address"`
	City          null.String `db:"city" json:"city"`
	Zip           null.String `db:"zip" json:"zip"`
	ServiceType   string      `db:"service_type" json:"serviceType"`
	LeadID        null.String `db:"lead_id" json:"leadId"`
	SalespersonID null.String `db:"salesperson_id" json:"salespersonId"`

	Status    string       `db:"status" json:"status"`
	Priority  string       `db:"priority" json:"priority"`
	Latitude  null.Float64 `db:"latitude" json:"latitude"`
	Longitude null.Float64 `db:"longitude" json:"longitude"`

	AssignedTechnicianID null.String `db:"assigned_technician_id" json:"assignedTechnicianId"`
	DispatcherID         null.String `db:"dispatcher_id" json:"dispatcherId"`
	AssignedAt           null.Time   `db:"assigned_at" json:"assignedAt"`
	ConfirmedAt          null.Time   `db:"confirmed_at" json:"confirmedAt"`
	EnRouteAt            null.Time   `db:"en_route_at" json:"enRouteAt"`
	ArrivedAt            null.Time   `db:"arrived_at" json:"arrivedAt"`
	StartedAt            null.Time   `db:"started_at" json:"startedAt"`
	CompletedAt          null.Time   `db:"completed_at" json:"completedAt"`
	CancelledAt          null.Time   `db:"cancelled_at" json:"cancelledAt"`

	ArrivalLat      null.Float64 `db:"arrival_lat" json:"arrivalLat"`
	ArrivalLng      null.Float64 `db:"arrival_lng" json:"arrivalLng"`
	ArrivalVerified null.Bool    `db:"arrival_verified" json:"arrivalVerified"`
	ArrivalDistance null.Float64 `db:"arrival_distance" json:"arrivalDistance"`

	LaborHours    decimal.NullDecimal `db:"labor_hours" json:"laborHours"`
	LaborRate     decimal.NullDecimal `db:"labor_rate" json:"laborRate"`
	LaborCost     decimal.NullDecimal `db:"labor_cost" json:"laborCost"`
	MaterialsCost decimal.NullDecimal `db:"materials_cost" json:"materialsCost"`
	TravelExpense decimal.NullDecimal `db:"travel_expense" json:"travelExpense"`
	EquipmentCost decimal.NullDecimal `db:"equipment_cost" json:"equipmentCost"`
	OtherExpenses decimal.NullDecimal `db:"other_expenses" json:"otherExpenses"`
	TotalCost     decimal.NullDecimal `db:"total_cost" json:"totalCost"`
	TotalRevenue  decimal.NullDecimal `db:"total_revenue" json:"totalRevenue"`
	Profit        decimal.NullDecimal `db:"profit" json:"profit"`

	CancellationReason null.String `db:"cancellation_reason" json:"cancellationReason"`
	CancelledBy        null.String `db:"cancelled_by" json:"cancelledBy"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Coordinates returns the geocoded job site, or nil when the address was never resolved.
func (j *Job) Coordinates() *geo.Coordinates {
	if !j.Latitude.Valid || !j.Longitude.Valid {
		return nil
	}
	return &geo.Coordinates{Lat: j.Latitude.Float64, Lng: j.Longitude.Float64}
}

// FullAddress joins address, city and zip for geocoding.
func (j *Job) FullAddress() string {
	addr := j.Address
	if j.City.Valid && j.City.String != "" {
		addr += ", " + j.City.String
	}
	if j.Zip.Valid && j.Zip.String != "" {
		addr += " " + j.Zip.String
	}
	return addr
}
