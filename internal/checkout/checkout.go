// Package checkout turns a session's cart into an order on the backend. Prices quoted here
// are optimistic; the backend recomputes them and its answer is the one shown after submit.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
	"github.com/Congxabeng103/bez-storefront/internal/store"
)

var ErrEmptyCart = errors.New("cart is empty")

type Carts interface {
	Cart(ctx context.Context, s *models.Session) ([]models.CartLine, error)
	ClearCart(ctx context.Context, s *models.Session) error
}

type Promotions interface {
	Active(ctx context.Context) ([]models.Promotion, error)
}

type Orders interface {
	Place(ctx context.Context, in models.OrderInput) (*models.Order, error)
}

type Attempts interface {
	Record(ctx context.Context, a models.CheckoutAttempt) (*models.CheckoutAttempt, error)
	List(ctx context.Context, sessionID, cursor string, limit int) (*store.CursorPage[models.CheckoutAttempt], error)
}

type Service struct {
	carts      Carts
	promotions Promotions
	coupons    pricing.CouponFinder
	evaluator  *pricing.Evaluator
	orders     Orders
	attempts   Attempts
	shipping   pricing.ShippingPolicy
}

type Deps struct {
	Carts      Carts
	Promotions Promotions
	Coupons    pricing.CouponFinder
	Orders     Orders
	Attempts   Attempts
	Shipping   pricing.ShippingPolicy
	Location   *time.Location
	Now        func() time.Time
}

func NewService(d Deps) *Service {
	ev := pricing.NewEvaluator(d.Coupons, d.Location)
	if d.Now != nil {
		ev.WithClock(d.Now)
	}
	return &Service{
		carts:      d.Carts,
		promotions: d.Promotions,
		coupons:    d.Coupons,
		evaluator:  ev,
		orders:     d.Orders,
		attempts:   d.Attempts,
		shipping:   d.Shipping,
	}
}

func pricingLines(lines []models.CartLine) []pricing.Line {
	out := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.Line{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return out
}

// Quote prices the session's cart with the active promotions and couponCode.
func (s *Service) Quote(ctx context.Context, sess *models.Session, couponCode string) (*pricing.Quote, []models.CartLine, error) {
	lines, err := s.carts.Cart(ctx, sess)
	if err != nil {
		return nil, nil, err
	}

	promos, err := s.promotions.Active(ctx)
	if err != nil {
		// quote without promotions rather than fail
		logger.Warn("active promotions unavailable", zap.Error(err))
		promos = nil
	}

	var coupon *models.Coupon
	code := pricing.NormalizeCode(couponCode)
	if code != "" {
		if coupon, err = s.coupons.FindCoupon(ctx, code); err != nil {
			return nil, nil, fmt.Errorf("find coupon: %w", err)
		}
	}

	q, err := pricing.BuildQuote(s.shipping, pricing.QuoteInput{
		Lines:      pricingLines(lines),
		Promotions: promos,
		CouponCode: code,
		Coupon:     coupon,
		Today:      s.evaluator.Today(),
	})
	if err != nil {
		return nil, nil, err
	}
	return q, lines, nil
}

// CheckCoupon evaluates code against the cart subtotal alone, for the "apply" button.
func (s *Service) CheckCoupon(ctx context.Context, sess *models.Session, code string) (*pricing.AppliedCoupon, error) {
	lines, err := s.carts.Cart(ctx, sess)
	if err != nil {
		return nil, err
	}
	subtotal, err := pricing.Subtotal(pricingLines(lines))
	if err != nil {
		return nil, err
	}
	return s.evaluator.Evaluate(ctx, code, subtotal)
}

// Request is the checkout form.
type Request struct {
	CustomerName  string               `json:"customerName" validate:"required,max=255"`
	Phone         string               `json:"phone" validate:"required,numeric,min=9,max=15"`
	Email         string               `json:"email,omitempty" validate:"omitempty,email"`
	Province      string               `json:"province" validate:"required"`
	District      string               `json:"district" validate:"required"`
	Ward          string               `json:"ward" validate:"required"`
	Street        string               `json:"street" validate:"required,max=255"`
	Note          string               `json:"note,omitempty" validate:"max=1000"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod" validate:"required,oneof=COD VNPAY MOMO"`
	CouponCode    string               `json:"couponCode,omitempty"`
}

func (r Request) Address() string {
	parts := []string{r.Street, r.Ward, r.District, r.Province}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ", ")
}

type Result struct {
	Order   *models.Order           `json:"order"`
	Quote   *pricing.Quote          `json:"quote"`
	Attempt *models.CheckoutAttempt `json:"attempt,omitempty"`

	// PriceChanged is set when the backend's total differs from the quote shown before submit.
	PriceChanged bool `json:"priceChanged"`
}

// Submit places the order. A coupon the quote already rejects stops here without a request;
// anything the backend rejects is recorded and returned as its error.
func (s *Service) Submit(ctx context.Context, sess *models.Session, req Request) (*Result, error) {
	if fe := form.Check(req); fe != nil {
		return nil, fe
	}

	q, lines, err := s.Quote(ctx, sess, req.CouponCode)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if q.Rejection != "" {
		return nil, &pricing.RejectionError{Code: q.CouponCode, Reason: q.Rejection}
	}

	in := models.OrderInput{
		CustomerName:   strings.TrimSpace(req.CustomerName),
		Phone:          strings.TrimSpace(req.Phone),
		Email:          strings.TrimSpace(req.Email),
		Address:        req.Address(),
		Note:           req.Note,
		UserID:         sess.UserID,
		CouponCode:     q.CouponCode,
		PaymentMethod:  req.PaymentMethod,
		Subtotal:       q.Subtotal,
		ShippingFee:    q.ShippingFee,
		DiscountAmount: q.DiscountAmount,
		TotalAmount:    q.Total,
	}
	for _, l := range lines {
		in.Items = append(in.Items, models.OrderItemInput{VariantID: l.VariantID, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	if fe := form.Check(in); fe != nil {
		return nil, fe
	}

	order, err := s.orders.Place(ctx, in)
	if err != nil {
		s.record(ctx, sess, models.CheckoutAttempt{
			CouponCode:  q.CouponCode,
			QuotedTotal: q.Total,
			FinalTotal:  decimal.Zero,
			Outcome:     models.CheckoutOutcomeRejected,
			Message:     backend.Message(err, err.Error()),
		})
		return nil, err
	}

	attempt := s.record(ctx, sess, models.CheckoutAttempt{
		OrderNumber: order.OrderNumber,
		CouponCode:  q.CouponCode,
		QuotedTotal: q.Total,
		FinalTotal:  order.TotalAmount,
		Outcome:     models.CheckoutOutcomeSubmitted,
	})

	if err := s.carts.ClearCart(ctx, sess); err != nil {
		logger.Error("clear cart after checkout", zap.String("session_id", sess.ID), zap.Error(err))
	}

	res := &Result{
		Order:        order,
		Quote:        q,
		Attempt:      attempt,
		PriceChanged: !order.TotalAmount.Equal(q.Total),
	}
	if res.PriceChanged {
		logger.Info("backend total differs from quote",
			zap.String("order_number", order.OrderNumber),
			zap.Stringer("quoted", q.Total),
			zap.Stringer("final", order.TotalAmount),
		)
	}
	return res, nil
}

// record never fails the checkout; the order, if any, already exists.
func (s *Service) record(ctx context.Context, sess *models.Session, a models.CheckoutAttempt) *models.CheckoutAttempt {
	a.ID = uuid.NewString()
	a.SessionID = sess.ID
	saved, err := s.attempts.Record(ctx, a)
	if err != nil {
		logger.Error("record checkout attempt", zap.String("session_id", sess.ID), zap.Error(err))
		return nil
	}
	return saved
}

func (s *Service) History(ctx context.Context, sess *models.Session, cursor string, limit int) (*store.CursorPage[models.CheckoutAttempt], error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, err := s.attempts.List(ctx, sess.ID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("checkout history: %w", err)
	}
	return page, nil
}
