// Package orderflow holds the admin order status table: which transitions are legal from each
// status, what the action is called, and what the backend is expected to do when it happens.
package orderflow

import (
	"errors"
	"fmt"

	"github.com/Congxabeng103/bez-storefront/internal/models"
)

var ErrIllegalTransition = errors.New("illegal order status transition")

// SideEffect is what the backend is expected to perform alongside a transition.
type SideEffect string

const (
	EffectNone             SideEffect = "NONE"
	EffectRestock          SideEffect = "RESTOCK"
	EffectAssignTracking   SideEffect = "ASSIGN_TRACKING"
	EffectUndoConfirmation SideEffect = "UNDO_CONFIRMATION"
	EffectMarkPaidIfCOD    SideEffect = "MARK_PAID_IF_COD"
	EffectRefund           SideEffect = "REFUND"
	EffectResolveDelivered SideEffect = "RESOLVE_DELIVERED"
	EffectResolveRefund    SideEffect = "RESOLVE_REFUND"
)

// Transition is one row of the table. Action is the label of the admin button.
type Transition struct {
	From   models.OrderStatus `json:"from"`
	To     models.OrderStatus `json:"to"`
	Action string             `json:"action"`
	Effect SideEffect         `json:"effect"`
}

var transitions = []Transition{
	{models.OrderStatusPending, models.OrderStatusConfirmed, "Confirm", EffectNone},
	{models.OrderStatusPending, models.OrderStatusCancelled, "Cancel", EffectRestock},
	{models.OrderStatusConfirmed, models.OrderStatusShipping, "Ship", EffectAssignTracking},
	{models.OrderStatusConfirmed, models.OrderStatusPending, "Undo confirmation", EffectUndoConfirmation},
	{models.OrderStatusConfirmed, models.OrderStatusCancelled, "Cancel", EffectRestock},
	{models.OrderStatusShipping, models.OrderStatusDelivered, "Mark delivered", EffectMarkPaidIfCOD},
	{models.OrderStatusShipping, models.OrderStatusCancelled, "Delivery failed", EffectRestock},
	{models.OrderStatusDelivered, models.OrderStatusCompleted, "Complete", EffectNone},
	{models.OrderStatusDelivered, models.OrderStatusCancelled, "Return and refund", EffectRefund},
	{models.OrderStatusDispute, models.OrderStatusDelivered, "Resolve as delivered", EffectResolveDelivered},
	{models.OrderStatusDispute, models.OrderStatusCancelled, "Resolve with refund", EffectResolveRefund},
}

// Table returns a copy of every legal transition.
func Table() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// Actions returns the transitions available from status, in table order.
// It is empty for terminal and unknown statuses.
func Actions(from models.OrderStatus) []Transition {
	var out []Transition
	for _, tr := range transitions {
		if tr.From == from {
			out = append(out, tr)
		}
	}
	return out
}

func lookup(from, to models.OrderStatus) (Transition, bool) {
	for _, tr := range transitions {
		if tr.From == from && tr.To == to {
			return tr, true
		}
	}
	return Transition{}, false
}

// Validate returns the table row for from -> to, or ErrIllegalTransition.
func Validate(from, to models.OrderStatus) (Transition, error) {
	tr, ok := lookup(from, to)
	if !ok {
		return Transition{}, fmt.Errorf("%s -> %s: %w", from, to, ErrIllegalTransition)
	}
	return tr, nil
}

// Terminal reports whether no transition leaves status.
func Terminal(status models.OrderStatus) bool {
	return len(Actions(status)) == 0
}

// NextPaymentStatus is the payment status the admin screen expects after moving to `to`.
// Only a COD order delivered from SHIPPING becomes PAID; everything else keeps its status.
func NextPaymentStatus(from, to models.OrderStatus, method models.PaymentMethod, current models.PaymentStatus) models.PaymentStatus {
	if from == models.OrderStatusShipping && to == models.OrderStatusDelivered &&
		method == models.PaymentMethodCOD && current != models.PaymentStatusPaid {
		return models.PaymentStatusPaid
	}
	return current
}
