package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session is the server-side half of a browser session. Token is empty for anonymous shoppers.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	UserID    *int64    `json:"userId,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

func (s *Session) Authenticated() bool {
	return s.Token != ""
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// CartLine keeps a display snapshot of the variant taken when it was added.
// The price the customer pays is re-checked by the backend at order creation.
type CartLine struct {
	SessionID   string          `json:"-"`
	VariantID   int64           `json:"variantId"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	VariantName string          `json:"variantName"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Version     int             `json:"version"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

const (
	CheckoutOutcomeSubmitted = "SUBMITTED"
	CheckoutOutcomeRejected  = "REJECTED"
)

// CheckoutAttempt records one order submission from a session, successful or not.
type CheckoutAttempt struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"-"`
	OrderNumber string          `json:"orderNumber,omitempty"`
	CouponCode  string          `json:"couponCode,omitempty"`
	QuotedTotal decimal.Decimal `json:"quotedTotal"`
	FinalTotal  decimal.Decimal `json:"finalTotal"`
	Outcome     string          `json:"outcome"`
	Message     string          `json:"message,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
