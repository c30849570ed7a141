package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/address"
	"github.com/Congxabeng103/bez-storefront/internal/admin"
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/checkout"
	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/form"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/orderflow"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
	"github.com/Congxabeng103/bez-storefront/internal/session"
	"github.com/Congxabeng103/bez-storefront/internal/store"
)

const maxRequestBody = 1 << 20

var errBadBody = errors.New("invalid request body")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.Envelope[any]{Status: models.StatusSuccess, Data: data}); err != nil {
		logger.Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := models.Envelope[any]{Status: models.StatusError, Message: message, Data: data}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encode error response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// writeError maps err to a status code and writes it as an error envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := form.AsFieldErrors(err); ok {
		respondError(w, http.StatusBadRequest, "Please correct the highlighted fields", fe)
		return
	}

	var rejErr *pricing.RejectionError
	if errors.As(err, &rejErr) {
		respondError(w, http.StatusUnprocessableEntity, rejErr.Reason.Message(), map[string]string{
			"code":   rejErr.Code,
			"reason": string(rejErr.Reason),
		})
		return
	}

	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	respondError(w, status, message, nil)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, "Your cart is empty"
	case errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest, "Invalid cursor"
	case errors.Is(err, session.ErrInvalidQuantity):
		return http.StatusBadRequest, "Quantity must be at least 1"
	case errors.Is(err, session.ErrOutOfStock):
		return http.StatusUnprocessableEntity, "Not enough stock for this item"
	case errors.Is(err, session.ErrVariantUnavailable):
		return http.StatusUnprocessableEntity, "This item is no longer available"
	case errors.Is(err, session.ErrNotInCart):
		return http.StatusNotFound, "Item is not in your cart"
	case errors.Is(err, session.ErrStaleCart), errors.Is(err, database.ErrLockTimeout):
		return http.StatusConflict, "Your cart changed, please reload"
	case errors.Is(err, session.ErrInvalidToken), errors.Is(err, backend.ErrNoToken):
		return http.StatusUnauthorized, "Please sign in"
	case errors.Is(err, admin.ErrAdminOnly):
		return http.StatusForbidden, "Only administrators can do this"
	case errors.Is(err, admin.ErrStillReferenced):
		return http.StatusConflict, "This record is still in use; deactivate it instead"
	case errors.Is(err, orderflow.ErrIllegalTransition):
		return http.StatusConflict, "This order can no longer move to that status"
	case errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound, "Address not found"
	case errors.Is(err, admin.ErrOutOfScope):
		return http.StatusNotFound, "Record not found"
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		msg := backend.Message(err, "The server could not complete the request")
		switch apiErr.Kind {
		case backend.KindValidation:
			return http.StatusBadRequest, msg
		case backend.KindAuthorization:
			if apiErr.Status == http.StatusForbidden {
				return http.StatusForbidden, msg
			}
			return http.StatusUnauthorized, msg
		case backend.KindNotFound:
			return http.StatusNotFound, msg
		case backend.KindConflict:
			return http.StatusConflict, msg
		default:
			return http.StatusBadGateway, msg
		}
	}

	var decErr *backend.DecodeError
	if errors.As(err, &decErr) {
		return http.StatusBadGateway, "The server sent an unexpected response"
	}
	return http.StatusInternalServerError, "Something went wrong"
}
