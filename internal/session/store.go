package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/store"
)

// Store is the persistence the Manager needs.
type Store interface {
	CreateSession(ctx context.Context, id string, expiresAt time.Time) (*models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	UpdateSessionAuth(ctx context.Context, s *models.Session) (*models.Session, error)
	TouchSession(ctx context.Context, id string, expiresAt time.Time) error
	// SignOut clears the session's identity and cart together.
	SignOut(ctx context.Context, s *models.Session) (*models.Session, error)
	PurgeExpired(ctx context.Context, now time.Time, batch int) (int, error)

	ListCart(ctx context.Context, sessionID string) ([]models.CartLine, error)
	AddToCart(ctx context.Context, line models.CartLine, maxQuantity int) (*models.CartLine, error)
	SetQuantity(ctx context.Context, sessionID string, variantID int64, quantity, version int) (*models.CartLine, error)
	RemoveFromCart(ctx context.Context, sessionID string, variantID int64) error
	ClearCart(ctx context.Context, sessionID string) (int, error)
}

// PGStore is the Postgres Store.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (p *PGStore) CreateSession(ctx context.Context, id string, expiresAt time.Time) (*models.Session, error) {
	return store.CreateSession(ctx, p.db, id, expiresAt)
}

func (p *PGStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	return store.GetSession(ctx, p.db, id)
}

func (p *PGStore) UpdateSessionAuth(ctx context.Context, s *models.Session) (*models.Session, error) {
	return store.UpdateSessionAuth(ctx, p.db, s)
}

func (p *PGStore) TouchSession(ctx context.Context, id string, expiresAt time.Time) error {
	return store.TouchSession(ctx, p.db, id, expiresAt)
}

func (p *PGStore) SignOut(ctx context.Context, s *models.Session) (*models.Session, error) {
	var out *models.Session
	err := database.WithTransaction(ctx, p.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		cleared := *s
		cleared.Token, cleared.UserID, cleared.Email, cleared.Role = "", nil, "", ""

		var err error
		if out, err = store.UpdateSessionAuth(ctx, tx, &cleared); err != nil {
			return err
		}
		_, err = store.ClearCart(ctx, tx, s.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *PGStore) PurgeExpired(ctx context.Context, now time.Time, batch int) (int, error) {
	return store.PurgeExpiredSessions(ctx, p.db, now, batch)
}

func (p *PGStore) ListCart(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	return store.ListCartLines(ctx, p.db, sessionID)
}

// AddToCart locks the existing line, if any, before merging into it so two tabs adding the
// same variant cannot both pass the stock check.
func (p *PGStore) AddToCart(ctx context.Context, line models.CartLine, maxQuantity int) (*models.CartLine, error) {
	var out *models.CartLine
	err := database.WithRetry(ctx, p.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := store.LockCartLine(ctx, tx, line.SessionID, line.VariantID)
		if err != nil && !errors.Is(err, database.ErrCartLineNotFound) {
			return err
		}
		out, err = store.UpsertCartLine(ctx, tx, line, maxQuantity)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}
	return out, nil
}

func (p *PGStore) SetQuantity(ctx context.Context, sessionID string, variantID int64, quantity, version int) (*models.CartLine, error) {
	return store.UpdateCartQuantityOptimistic(ctx, p.db, sessionID, variantID, quantity, version)
}

func (p *PGStore) RemoveFromCart(ctx context.Context, sessionID string, variantID int64) error {
	return store.RemoveCartLine(ctx, p.db, sessionID, variantID)
}

func (p *PGStore) ClearCart(ctx context.Context, sessionID string) (int, error) {
	return store.ClearCart(ctx, p.db, sessionID)
}
