package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

const checkoutColumns = `id, session_id, order_number, coupon_code, quoted_total, final_total, outcome, message, created_at`

func scanCheckout(row scanner) (*models.CheckoutAttempt, error) {
	a := &models.CheckoutAttempt{}
	err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.OrderNumber,
		&a.CouponCode,
		&a.QuotedTotal,
		&a.FinalTotal,
		&a.Outcome,
		&a.Message,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func RecordCheckout(ctx context.Context, db DBTX, a models.CheckoutAttempt) (*models.CheckoutAttempt, error) {
	query := `
		INSERT INTO checkout_attempts (id, session_id, order_number, coupon_code, quoted_total, final_total,
		                               outcome, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING ` + checkoutColumns

	recorded, err := scanCheckout(db.QueryRowContext(ctx, query,
		a.ID, a.SessionID, a.OrderNumber, a.CouponCode, a.QuotedTotal, a.FinalTotal, a.Outcome, a.Message))
	if err != nil {
		return nil, fmt.Errorf("record checkout: %w", err)
	}
	return recorded, nil
}

func GetCheckout(ctx context.Context, db DBTX, sessionID, id string) (*models.CheckoutAttempt, error) {
	query := `SELECT ` + checkoutColumns + ` FROM checkout_attempts WHERE session_id = $1 AND id = $2`

	a, err := scanCheckout(db.QueryRowContext(ctx, query, sessionID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCheckoutNotFound
		}
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	return a, nil
}

// ListCheckoutsCursor pages a session's attempts newest first.
func ListCheckoutsCursor(ctx context.Context, db DBTX, sessionID, cursor string, limit int) (*CursorPage[models.CheckoutAttempt], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + checkoutColumns + `
		FROM checkout_attempts
		WHERE session_id = $1
		  AND (created_at, id) < ($2, $3::uuid)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, sessionID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list checkouts: %w", err)
	}
	defer rows.Close()

	attempts := []models.CheckoutAttempt{}
	for rows.Next() {
		a, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout: %w", err)
		}
		attempts = append(attempts, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(attempts) > limit
	if hasMore {
		attempts = attempts[:limit]
	}

	var nextCursor string
	if hasMore && len(attempts) > 0 {
		last := attempts[len(attempts)-1]
		nextCursor = EncodeCursor(CheckoutCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage[models.CheckoutAttempt]{
		Items:      attempts,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
