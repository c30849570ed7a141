// Package pricing computes optimistic discounts and totals for display.
// The backend re-validates everything at order creation and its answer wins.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode trims and upper-cases a coupon code. Codes are stored upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Today returns the calendar date of now in the business time zone.
func Today(now time.Time, loc *time.Location) models.Date {
	if loc == nil {
		loc = time.UTC
	}
	return models.DateOf(now.In(loc))
}

// PercentOf returns pct percent of amount, capped by maxAmount when set, floored to whole
// currency units, and never above amount.
func PercentOf(amount, pct decimal.Decimal, maxAmount *decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !pct.IsPositive() {
		return decimal.Zero
	}

	discount := amount.Mul(pct).Div(hundred)
	if maxAmount != nil && discount.GreaterThan(*maxAmount) {
		discount = *maxAmount
	}
	discount = discount.Floor()

	if discount.GreaterThan(amount) {
		discount = amount.Floor()
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

func inWindow(start, end, today models.Date) bool {
	if !start.IsZero() && today.Before(start) {
		return false
	}
	if !end.IsZero() && today.After(end) {
		return false
	}
	return true
}

// ApplyCoupon returns the discount coupon grants on subtotal, or a *RejectionError.
// A nil coupon means the code was not found.
func ApplyCoupon(c *models.Coupon, code string, subtotal decimal.Decimal, today models.Date) (decimal.Decimal, error) {
	return ApplyCouponOn(c, code, subtotal, subtotal, today)
}

// ApplyCouponOn checks the coupon against the cart subtotal and takes its percentage of base,
// which is the subtotal left after promotions.
func ApplyCouponOn(c *models.Coupon, code string, subtotal, base decimal.Decimal, today models.Date) (decimal.Decimal, error) {
	if err := CouponEligible(c, code, subtotal, today); err != nil {
		return decimal.Zero, err
	}
	if base.GreaterThan(subtotal) {
		base = subtotal
	}
	return PercentOf(base, c.DiscountValue, c.MaxDiscountAmount), nil
}

// CouponEligible returns a *RejectionError when c cannot be used on an order of subtotal.
func CouponEligible(c *models.Coupon, code string, subtotal decimal.Decimal, today models.Date) error {
	code = NormalizeCode(code)
	if subtotal.IsNegative() {
		return fmt.Errorf("subtotal %s: %w", subtotal, ErrNegativeAmount)
	}

	if c == nil || code == "" || NormalizeCode(c.Code) != code {
		return reject(code, RejectNotFound)
	}
	if !c.Active {
		return reject(code, RejectInactive)
	}
	if !inWindow(c.StartDate, c.EndDate, today) {
		return reject(code, RejectOutOfWindow)
	}
	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		return reject(code, RejectBelowMinOrder)
	}
	if c.UsageLimit != nil && *c.UsageLimit > 0 && c.UsedCount >= *c.UsageLimit {
		return reject(code, RejectUsageExhausted)
	}
	return nil
}

// CouponFinder looks a coupon up by its normalized code. It returns (nil, nil) when the
// code does not exist.
type CouponFinder interface {
	FindCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

type AppliedCoupon struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

type Evaluator struct {
	coupons CouponFinder
	loc     *time.Location
	now     func() time.Time
}

func NewEvaluator(coupons CouponFinder, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{coupons: coupons, loc: loc, now: time.Now}
}

// WithClock replaces the evaluator's time source.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

func (e *Evaluator) Today() models.Date {
	return Today(e.now(), e.loc)
}

// Evaluate looks code up and applies it to subtotal. Lookup failures are returned as plain
// errors; business outcomes are *RejectionError.
func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*AppliedCoupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, reject(code, RejectNotFound)
	}

	coupon, err := e.coupons.FindCoupon(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find coupon %s: %w", code, err)
	}

	discount, err := ApplyCoupon(coupon, code, subtotal, e.Today())
	if err != nil {
		return nil, err
	}
	return &AppliedCoupon{Coupon: coupon, Discount: discount}, nil
}
