package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipping  OrderStatus = "SHIPPING"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusDispute   OrderStatus = "DISPUTE"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusDispute,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range orderStatuses {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "COD"
	PaymentMethodVNPay PaymentMethod = "VNPAY"
	PaymentMethodMoMo  PaymentMethod = "MOMO"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Order is created once and afterwards only its status fields and tracking code change.
// Customer and price fields are snapshots taken at creation time.
type Order struct {
	ID             int64           `json:"id" validate:"required"`
	OrderNumber    string          `json:"orderNumber" validate:"required"`
	CustomerName   string          `json:"customerName"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email,omitempty"`
	Address        string          `json:"address"`
	Note           string          `json:"note,omitempty"`
	Items          []OrderItem     `json:"items" validate:"dive"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shippingFee"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CouponCode     string          `json:"couponCode,omitempty"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod" validate:"required,oneof=COD VNPAY MOMO"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus" validate:"required,oneof=PENDING PAID FAILED REFUNDED"`
	OrderStatus    OrderStatus     `json:"orderStatus" validate:"required,oneof=PENDING CONFIRMED SHIPPING DELIVERED COMPLETED CANCELLED DISPUTE"`
	TrackingCode   string          `json:"trackingCode,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
}

type OrderItem struct {
	VariantID   int64           `json:"variantId" validate:"required"`
	ProductName string          `json:"productName,omitempty"`
	VariantName string          `json:"variantName,omitempty"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	Price       decimal.Decimal `json:"price"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderInput is what the storefront checkout and the admin manual-create form submit.
type OrderInput struct {
	CustomerName   string           `json:"customerName" validate:"required,max=255"`
	Phone          string           `json:"phone" validate:"required,min=9,max=15"`
	Email          string           `json:"email,omitempty" validate:"omitempty,email"`
	Address        string           `json:"address" validate:"required"`
	Note           string           `json:"note,omitempty"`
	UserID         *int64           `json:"userId,omitempty"`
	Items          []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	CouponCode     string           `json:"couponCode,omitempty"`
	PaymentMethod  PaymentMethod    `json:"paymentMethod" validate:"required,oneof=COD VNPAY MOMO"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	ShippingFee    decimal.Decimal  `json:"shippingFee"`
	DiscountAmount decimal.Decimal  `json:"discountAmount"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
}

type OrderItemInput struct {
	VariantID int64           `json:"variantId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
}

type OrderStatusUpdate struct {
	Status       OrderStatus `json:"status" validate:"required"`
	TrackingCode string      `json:"trackingCode,omitempty"`
}
