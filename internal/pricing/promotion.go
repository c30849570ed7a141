package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

// Line is one cart or order line as pricing sees it.
type Line struct {
	ProductID int64
	VariantID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the lines. A line with a negative quantity or price is an input error.
func Subtotal(lines []Line) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		if l.Quantity < 0 || l.UnitPrice.IsNegative() {
			return decimal.Zero, fmt.Errorf("variant %d: %w", l.VariantID, ErrNegativeAmount)
		}
		total = total.Add(l.Subtotal())
	}
	return total, nil
}

// ApplyPromotion returns the discount promo grants on the lines it covers.
// The minimum order amount is compared with the whole cart, the percentage with the covered part.
// A promotion that covers nothing in the cart grants zero without a rejection.
func ApplyPromotion(promo models.Promotion, lines []Line, today models.Date) (decimal.Decimal, error) {
	cartTotal, err := Subtotal(lines)
	if err != nil {
		return decimal.Zero, err
	}

	if !promo.Active {
		return decimal.Zero, reject("", RejectInactive)
	}
	if !inWindow(promo.StartDate, promo.EndDate, today) {
		return decimal.Zero, reject("", RejectOutOfWindow)
	}
	if promo.MinOrderAmount != nil && cartTotal.LessThan(*promo.MinOrderAmount) {
		return decimal.Zero, reject("", RejectBelowMinOrder)
	}

	covered := decimal.Zero
	for _, l := range lines {
		if promo.Covers(l.ProductID) {
			covered = covered.Add(l.Subtotal())
		}
	}
	return PercentOf(covered, promo.DiscountValue, promo.MaxDiscountAmount), nil
}

type PromotionDiscount struct {
	PromotionID int64           `json:"promotionId"`
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
}

// BestPromotion returns the single promotion granting the largest discount, or nil when none
// applies. Ties go to the promotion listed first.
func BestPromotion(promos []models.Promotion, lines []Line, today models.Date) (*PromotionDiscount, error) {
	var best *PromotionDiscount
	for _, p := range promos {
		amount, err := ApplyPromotion(p, lines, today)
		if err != nil {
			if _, ok := AsRejection(err); ok {
				continue
			}
			return nil, err
		}
		if !amount.IsPositive() {
			continue
		}
		if best == nil || amount.GreaterThan(best.Amount) {
			best = &PromotionDiscount{PromotionID: p.ID, Name: p.Name, Amount: amount}
		}
	}
	return best, nil
}
