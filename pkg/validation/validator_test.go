package validation

import (
	"testing"

	"github.com/aarondl/null/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Priority string              `validate:"omitempty,job_priority"`
	Phone    null.String         `validate:"omitempty,phone"`
	Amount   decimal.NullDecimal `validate:"omitempty,gte=0"`
	Rate     decimal.Decimal     `validate:"gte=0,lte=1"`
}

func TestValidator(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&sample{Priority: "high", Phone: null.StringFrom("(555) 123-4567"), Rate: decimal.RequireFromString("0.15")}))
	assert.NoError(t, v.Validate(&sample{}))

	assert.Error(t, v.Validate(&sample{Priority: "critical"}))
	assert.Error(t, v.Validate(&sample{Phone: null.StringFrom("call me")}))
	assert.Error(t, v.Validate(&sample{Amount: decimal.NewNullDecimal(decimal.NewFromInt(-1))}))
	assert.Error(t, v.Validate(&sample{Rate: decimal.RequireFromString("1.5")}))
}
