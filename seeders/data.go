package seeders

import (
	"github.com/shopspring/decimal"

	"field-crm/internal/dto"
	"field-crm/pkg/utils"
)

var techniciansData = []dto.TechnicianRosterDTO{
	{
		ID:               "tech-demo-1",
		Name:             "Dana Whitfield",
		Phone:            utils.ToPtr("+15550100001"),
		Email:            utils.ToPtr("dana.whitfield@example.com"),
		MaxDailyJobs:     6,
		ApprovedJobTypes: []string{"hvac", "plumbing"},
		HourlyRate:       decimal.NewNullDecimal(decimal.RequireFromString("32.50")),
	},
	{
		ID:               "tech-demo-2",
		Name:             "Marco Ruiz",
		Phone:            utils.ToPtr("+15550100002"),
		MaxDailyJobs:     5,
		ApprovedJobTypes: []string{"electrical"},
		HourlyRate:       decimal.NewNullDecimal(decimal.RequireFromString("29.00")),
	},
	{
		ID:           "tech-demo-3",
		Name:         "Priya Nair",
		Email:        utils.ToPtr("priya.nair@example.com"),
		MaxDailyJobs: 4,
	},
}

var salespeopleData = []dto.SalespersonRosterDTO{
	{
		ID:             "sales-demo-1",
		Name:           "Jordan Blake",
		Email:          utils.ToPtr("jordan.blake@example.com"),
		CommissionRate: decimal.NewNullDecimal(decimal.RequireFromString("0.12")),
	},
	{
		ID:    "sales-demo-2",
		Name:  "Sam Okafor",
		Email: utils.ToPtr("sam.okafor@example.com"),
	},
}

// Downtown Austin, a few kilometres apart so dispatch ranking has something to sort.
var locationsData = map[string][2]float64{
	"tech-demo-1": {30.2672, -97.7431},
	"tech-demo-2": {30.2849, -97.7341},
	"tech-demo-3": {30.2500, -97.7500},
}
