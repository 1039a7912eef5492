package services

import (
	"github.com/shopspring/decimal"

	"field-crm/internal/dto"
	"field-crm/internal/entities"
)

// DefaultLaborRate applies when labor hours are known but no rate was ever recorded.
var DefaultLaborRate = decimal.RequireFromString("25.00")

const moneyPlaces = 2

// Reconcile merges a cost update into job and recomputes the derived figures. It is pure:
// the returned job is a copy and nothing is persisted.
//
// Labor cost follows, in order: supplied hours or rate (hours x rate), a supplied labor
// cost, the labor cost already on the job, recorded hours x rate, zero.
func Reconcile(job entities.Job, update dto.CostUpdateDTO, defaultLaborRate decimal.Decimal) entities.Job {
	if defaultLaborRate.IsZero() {
		defaultLaborRate = DefaultLaborRate
	}

	hours := merge(job.LaborHours, update.LaborHours)
	rate := merge(job.LaborRate, update.LaborRate)

	effectiveRate := defaultLaborRate
	if rate.Valid {
		effectiveRate = rate.Decimal
	}

	var laborCost decimal.Decimal
	switch {
	case (update.LaborHours.Valid || update.LaborRate.Valid) && hours.Valid:
		laborCost = hours.Decimal.Mul(effectiveRate)
	case update.LaborCost.Valid:
		laborCost = update.LaborCost.Decimal
	case job.LaborCost.Valid:
		laborCost = job.LaborCost.Decimal
	case hours.Valid:
		laborCost = hours.Decimal.Mul(effectiveRate)
	}

	if hours.Valid {
		job.LaborHours = money(hours.Decimal)
		job.LaborRate = money(effectiveRate)
	} else {
		job.LaborRate = rate
	}

	job.LaborCost = money(laborCost)
	job.MaterialsCost = money(orZero(merge(job.MaterialsCost, update.MaterialsCost)))
	job.TravelExpense = money(orZero(merge(job.TravelExpense, update.TravelExpense)))
	job.EquipmentCost = money(orZero(merge(job.EquipmentCost, update.EquipmentCost)))
	job.OtherExpenses = money(orZero(merge(job.OtherExpenses, update.OtherExpenses)))

	total := job.LaborCost.Decimal.
		Add(job.MaterialsCost.Decimal).
		Add(job.TravelExpense.Decimal).
		Add(job.EquipmentCost.Decimal).
		Add(job.OtherExpenses.Decimal)
	job.TotalCost = money(total)

	revenue := merge(job.TotalRevenue, update.TotalRevenue)
	if revenue.Valid {
		job.TotalRevenue = money(revenue.Decimal)
		job.Profit = money(job.TotalRevenue.Decimal.Sub(job.TotalCost.Decimal))
	} else {
		job.TotalRevenue = decimal.NullDecimal{}
		job.Profit = decimal.NullDecimal{}
	}

	return job
}

func merge(current, update decimal.NullDecimal) decimal.NullDecimal {
	if update.Valid {
		return update
	}
	return current
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

func money(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d.Round(moneyPlaces), Valid: true}
}
