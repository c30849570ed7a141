package models

import (
	"github.com/shopspring/decimal"
)

// Coupon is a customer-entered code. DiscountValue is a percentage in [0, 100].
// UsedCount is only ever incremented by the backend when an order redeems the coupon.
type Coupon struct {
	ID                int64            `json:"id" validate:"required"`
	Code              string           `json:"code" validate:"required"`
	Description       string           `json:"description,omitempty"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount"`
	UsageLimit        *int             `json:"usageLimit"`
	UsedCount         int              `json:"usedCount" validate:"gte=0"`
	FreeShipping      bool             `json:"freeShipping"`
	StartDate         Date             `json:"startDate"`
	EndDate           Date             `json:"endDate"`
	Active            bool             `json:"active"`
}

type CouponInput struct {
	Code              string           `json:"code" validate:"required,max=50"`
	Description       string           `json:"description,omitempty"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount"`
	UsageLimit        *int             `json:"usageLimit" validate:"omitempty,gte=0"`
	FreeShipping      bool             `json:"freeShipping"`
	StartDate         Date             `json:"startDate"`
	EndDate           Date             `json:"endDate"`
	Active            bool             `json:"active"`
}

// Promotion is applied automatically to the products it is scoped to.
type Promotion struct {
	ID                int64            `json:"id" validate:"required"`
	Name              string           `json:"name" validate:"required"`
	Description       string           `json:"description,omitempty"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount"`
	StartDate         Date             `json:"startDate"`
	EndDate           Date             `json:"endDate"`
	Active            bool             `json:"active"`
	ProductIDs        []int64          `json:"productIds"`
}

// Covers reports whether productID is in the promotion's scope.
func (p Promotion) Covers(productID int64) bool {
	for _, id := range p.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

type PromotionInput struct {
	Name              string           `json:"name" validate:"required,max=255"`
	Description       string           `json:"description,omitempty"`
	DiscountValue     decimal.Decimal  `json:"discountValue"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount"`
	StartDate         Date             `json:"startDate"`
	EndDate           Date             `json:"endDate"`
	Active            bool             `json:"active"`
	ProductIDs        []int64          `json:"productIds"`
}
