// Package admin implements the back-office operations on top of the REST backend: order status
// changes, catalog CRUD with the hard-delete guard, and the coupon and promotion forms.
package admin

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/orderflow"
)

type OrderBackend interface {
	List(ctx context.Context, q backend.ListQuery) (*models.Page[models.Order], error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	Create(ctx context.Context, in models.OrderInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, upd models.OrderStatusUpdate) (*models.Order, error)
}

type Orders struct {
	backend OrderBackend
}

func NewOrders(b OrderBackend) *Orders {
	return &Orders{backend: b}
}

func (o *Orders) List(ctx context.Context, q backend.ListQuery) (*models.Page[models.Order], error) {
	return o.backend.List(ctx, q)
}

func (o *Orders) Get(ctx context.Context, id int64) (*models.Order, error) {
	return o.backend.Get(ctx, id)
}

// Create places an order from the manual-create form.
func (o *Orders) Create(ctx context.Context, in models.OrderInput) (*models.Order, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Phone = strings.TrimSpace(in.Phone)
	if fe := form.Check(in); fe != nil {
		return nil, fe
	}
	return o.backend.Create(ctx, in)
}

// Actions lists the buttons to show for order.
func (o *Orders) Actions(order *models.Order) []orderflow.Transition {
	return orderflow.Actions(order.OrderStatus)
}

// Transition moves order id to status to. Illegal moves and a missing tracking code on
// shipment fail before any request is sent. The order is refetched afterwards so the caller
// sees the payment status and stock changes the backend made; a payment status other than
// the one the move implies is logged.
func (o *Orders) Transition(ctx context.Context, id int64, to models.OrderStatus, trackingCode string) (*models.Order, error) {
	current, err := o.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, err := orderflow.Validate(current.OrderStatus, to)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", current.OrderNumber, err)
	}

	upd := models.OrderStatusUpdate{Status: to}
	if tr.Effect == orderflow.EffectAssignTracking {
		upd.TrackingCode = strings.TrimSpace(trackingCode)
		if upd.TrackingCode == "" {
			return nil, form.FieldErrors{"trackingCode": "is required to ship the order"}
		}
	}

	expected := orderflow.NextPaymentStatus(current.OrderStatus, to, current.PaymentMethod, current.PaymentStatus)

	if _, err := o.backend.UpdateStatus(ctx, id, upd); err != nil {
		return nil, err
	}
	logger.Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(current.OrderStatus)),
		zap.String("to", string(to)),
		zap.String("effect", string(tr.Effect)),
	)

	order, err := o.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus != expected {
		logger.Warn("payment status differs from expected after status change",
			zap.Int64("order_id", id),
			zap.String("to", string(to)),
			zap.String("expected", string(expected)),
			zap.String("actual", string(order.PaymentStatus)),
		)
	}
	return order, nil
}
