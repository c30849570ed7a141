package pricing

import (
	"github.com/shopspring/decimal"
)

// ShippingPolicy charges a flat fee on any non-empty order.
type ShippingPolicy struct {
	FlatFee decimal.Decimal
}

func NewShippingPolicy(flatFee int64) ShippingPolicy {
	return ShippingPolicy{FlatFee: decimal.NewFromInt(flatFee)}
}

// Fee returns the shipping fee for subtotal. A free-shipping coupon zeroes it.
func (p ShippingPolicy) Fee(subtotal decimal.Decimal, free bool) decimal.Decimal {
	if free || !subtotal.IsPositive() {
		return decimal.Zero
	}
	return p.FlatFee
}

// ComputeTotal returns subtotal + shippingFee - discount, never below zero.
func ComputeTotal(subtotal, shippingFee, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shippingFee).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
