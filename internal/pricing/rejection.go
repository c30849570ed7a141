package pricing

import (
	"errors"
	"fmt"
)

// Rejection is why a coupon or promotion does not apply. It is a normal outcome shown to the
// shopper, not a failure of the evaluator.
type Rejection string

const (
	RejectNotFound       Rejection = "NOT_FOUND"
	RejectInactive       Rejection = "INACTIVE"
	RejectOutOfWindow    Rejection = "OUT_OF_WINDOW"
	RejectBelowMinOrder  Rejection = "BELOW_MIN_ORDER"
	RejectUsageExhausted Rejection = "USAGE_EXHAUSTED"
)

var rejectionMessages = map[Rejection]string{
	RejectNotFound:       "Coupon code does not exist",
	RejectInactive:       "Coupon is no longer active",
	RejectOutOfWindow:    "Coupon is not valid today",
	RejectBelowMinOrder:  "Order does not reach the coupon's minimum amount",
	RejectUsageExhausted: "Coupon has reached its usage limit",
}

func (r Rejection) Message() string {
	if msg, ok := rejectionMessages[r]; ok {
		return msg
	}
	return string(r)
}

type RejectionError struct {
	Code   string
	Reason Rejection
}

func (e *RejectionError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("discount rejected: %s", e.Reason)
	}
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

func reject(code string, reason Rejection) error {
	return &RejectionError{Code: code, Reason: reason}
}

// AsRejection extracts the rejection reason from err, if any.
func AsRejection(err error) (Rejection, bool) {
	var rejErr *RejectionError
	if errors.As(err, &rejErr) {
		return rejErr.Reason, true
	}
	return "", false
}

var ErrNegativeAmount = errors.New("amount must not be negative")
