package admin

import (
	"github.com/shopspring/decimal"

	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

type discountFields struct {
	value     decimal.Decimal
	maxAmount *decimal.Decimal
	minOrder  *decimal.Decimal
	start     models.Date
	end       models.Date
	active    bool
}

// checkReactivation refuses to switch a discount back on after its end date.
func checkReactivation(end, today models.Date) form.FieldErrors {
	if !end.IsZero() && end.Before(today) {
		return form.FieldErrors{"endDate": "has passed; extend it before reactivating"}
	}
	return nil
}

func checkDiscount(fe form.FieldErrors, d discountFields, today models.Date) {
	switch {
	case !d.value.IsPositive():
		fe.Add("discountValue", "must be greater than 0")
	case d.value.GreaterThan(hundred):
		fe.Add("discountValue", "must be at most 100")
	}

	if d.maxAmount != nil && d.maxAmount.IsNegative() {
		fe.Add("maxDiscountAmount", "must not be negative")
	}
	if d.minOrder != nil && d.minOrder.IsNegative() {
		fe.Add("minOrderAmount", "must not be negative")
	}

	if !d.start.IsZero() && !d.end.IsZero() && d.end.Before(d.start) {
		fe.Add("endDate", "must not be before the start date")
	}
	if d.active && !d.end.IsZero() && d.end.Before(today) {
		fe.Add("endDate", "an active discount cannot end in the past")
	}
}
