package checkout

import (
	"context"
	"database/sql"

	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/store"
)

// PGAttempts keeps checkout attempts in Postgres.
type PGAttempts struct {
	db *sql.DB
}

func NewPGAttempts(db *sql.DB) *PGAttempts {
	return &PGAttempts{db: db}
}

func (p *PGAttempts) Record(ctx context.Context, a models.CheckoutAttempt) (*models.CheckoutAttempt, error) {
	return store.RecordCheckout(ctx, p.db, a)
}

func (p *PGAttempts) List(ctx context.Context, sessionID, cursor string, limit int) (*store.CursorPage[models.CheckoutAttempt], error) {
	return store.ListCheckoutsCursor(ctx, p.db, sessionID, cursor, limit)
}
