package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

type QuoteInput struct {
	Lines      []Line
	Promotions []models.Promotion
	// CouponCode is what the shopper typed. Coupon is its lookup result, nil when not found.
	CouponCode string
	Coupon     *models.Coupon
	Today      models.Date
}

// Quote is the optimistic price breakdown shown before the order is submitted.
type Quote struct {
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Promotion        *PromotionDiscount `json:"promotion,omitempty"`
	CouponCode       string             `json:"couponCode,omitempty"`
	CouponDiscount   decimal.Decimal    `json:"couponDiscount"`
	Rejection        Rejection          `json:"rejection,omitempty"`
	RejectionMessage string             `json:"rejectionMessage,omitempty"`
	FreeShipping     bool               `json:"freeShipping"`
	ShippingFee      decimal.Decimal    `json:"shippingFee"`
	DiscountAmount   decimal.Decimal    `json:"discountAmount"`
	Total            decimal.Decimal    `json:"total"`
}

// BuildQuote prices the lines: best promotion first, then the coupon on what is left of the
// subtotal, then shipping. Coupon eligibility is judged on the full subtotal. A rejected coupon is reported on the quote rather than returned.
func BuildQuote(policy ShippingPolicy, in QuoteInput) (*Quote, error) {
	subtotal, err := Subtotal(in.Lines)
	if err != nil {
		return nil, err
	}
	q := &Quote{
		Subtotal:       subtotal,
		CouponDiscount: decimal.Zero,
		DiscountAmount: decimal.Zero,
	}

	promo, err := BestPromotion(in.Promotions, in.Lines, in.Today)
	if err != nil {
		return nil, err
	}
	promoAmount := decimal.Zero
	if promo != nil {
		q.Promotion = promo
		promoAmount = promo.Amount
	}

	if code := NormalizeCode(in.CouponCode); code != "" {
		q.CouponCode = code
		discount, err := ApplyCouponOn(in.Coupon, code, subtotal, subtotal.Sub(promoAmount), in.Today)
		switch reason, rejected := AsRejection(err); {
		case rejected:
			q.Rejection = reason
			q.RejectionMessage = reason.Message()
		case err != nil:
			return nil, err
		default:
			q.CouponDiscount = discount
			q.FreeShipping = in.Coupon.FreeShipping
		}
	}

	q.DiscountAmount = promoAmount.Add(q.CouponDiscount)
	if q.DiscountAmount.GreaterThan(subtotal) {
		q.DiscountAmount = subtotal
	}
	q.ShippingFee = policy.Fee(subtotal, q.FreeShipping)
	q.Total = ComputeTotal(subtotal, q.ShippingFee, q.DiscountAmount)
	return q, nil
}
