// Package session is the server-side session and cart context. A Manager is built once at
// startup and handed to the HTTP layer; it hydrates a session per request from storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrOutOfStock         = errors.New("not enough stock for this variant")
	ErrVariantUnavailable = errors.New("variant is no longer sold")
	ErrNotInCart          = errors.New("item is not in the cart")
	ErrStaleCart          = errors.New("cart changed, reload and try again")
)

// VariantSource returns the current state of a variant. The backend's variants resource
// satisfies it.
type VariantSource interface {
	Get(ctx context.Context, id int64) (*models.Variant, error)
}

type Manager struct {
	store    Store
	variants VariantSource
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(store Store, variants VariantSource, ttl time.Duration) *Manager {
	return &Manager{store: store, variants: variants, ttl: ttl, now: time.Now}
}

// WithClock replaces the manager's time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Open hydrates session id. A missing, unknown or expired id yields a fresh anonymous
// session, reported by created.
func (m *Manager) Open(ctx context.Context, id string) (s *models.Session, created bool, err error) {
	now := m.now()

	if id != "" {
		s, err = m.store.GetSession(ctx, id)
		switch {
		case err == nil && !s.Expired(now):
			return m.slide(ctx, s, now), false, nil
		case err == nil, errors.Is(err, database.ErrSessionNotFound):
		default:
			return nil, false, fmt.Errorf("open session: %w", err)
		}
	}

	s, err = m.store.CreateSession(ctx, uuid.NewString(), now.Add(m.ttl))
	if err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}
	return s, true, nil
}

// slide pushes the expiry forward once less than half the TTL is left. Authenticated sessions
// never outlive their token.
func (m *Manager) slide(ctx context.Context, s *models.Session, now time.Time) *models.Session {
	if s.Authenticated() || s.ExpiresAt.Sub(now) > m.ttl/2 {
		return s
	}
	expiresAt := now.Add(m.ttl)
	if err := m.store.TouchSession(ctx, s.ID, expiresAt); err != nil {
		logger.Warn("extend session failed", zap.String("session_id", s.ID), zap.Error(err))
		return s
	}
	s.ExpiresAt = expiresAt
	return s
}

// Login attaches the backend token to s. The cart carries over.
func (m *Manager) Login(ctx context.Context, s *models.Session, token string) (*models.Session, error) {
	id, err := ParseIdentity(token)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if !id.ExpiresAt.IsZero() && !id.ExpiresAt.After(now) {
		return nil, fmt.Errorf("%w: token expired at %s", ErrInvalidToken, id.ExpiresAt.Format(time.RFC3339))
	}

	next := *s
	next.Token = token
	next.UserID = id.UserID
	next.Email = id.Email
	next.Role = id.Role
	next.ExpiresAt = now.Add(m.ttl)
	if !id.ExpiresAt.IsZero() && id.ExpiresAt.Before(next.ExpiresAt) {
		next.ExpiresAt = id.ExpiresAt
	}

	updated, err := m.store.UpdateSessionAuth(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	logger.Info("session signed in", zap.String("session_id", s.ID), zap.String("role", updated.Role))
	return updated, nil
}

// Logout drops the token and empties the cart. The session id stays valid as an anonymous session.
func (m *Manager) Logout(ctx context.Context, s *models.Session) (*models.Session, error) {
	updated, err := m.store.SignOut(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	return updated, nil
}

func (m *Manager) Cart(ctx context.Context, s *models.Session) ([]models.CartLine, error) {
	lines, err := m.store.ListCart(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return lines, nil
}

func (m *Manager) availableVariant(ctx context.Context, variantID int64) (*models.Variant, error) {
	v, err := m.variants.Get(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if !v.Active {
		return nil, ErrVariantUnavailable
	}
	return v, nil
}

// AddItem adds quantity of a variant, merging with an existing line. The merged quantity may
// not exceed the variant's stock.
func (m *Manager) AddItem(ctx context.Context, s *models.Session, variantID int64, quantity int) (*models.CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	v, err := m.availableVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if quantity > v.StockQuantity {
		return nil, ErrOutOfStock
	}

	line, err := m.store.AddToCart(ctx, models.CartLine{
		SessionID:   s.ID,
		VariantID:   v.ID,
		ProductID:   v.ProductID,
		ProductName: v.ProductName,
		VariantName: v.Label(),
		ImageURL:    v.ImageURL,
		UnitPrice:   v.Price,
		Quantity:    quantity,
	}, v.StockQuantity)
	if errors.Is(err, database.ErrInsufficientStock) {
		return nil, ErrOutOfStock
	}
	return line, err
}

// SetQuantity replaces a line's quantity if the caller saw the current version. Zero removes
// the line.
func (m *Manager) SetQuantity(ctx context.Context, s *models.Session, variantID int64, quantity, version int) (*models.CartLine, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return nil, m.RemoveItem(ctx, s, variantID)
	}

	v, err := m.availableVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	if quantity > v.StockQuantity {
		return nil, ErrOutOfStock
	}

	line, err := m.store.SetQuantity(ctx, s.ID, variantID, quantity, version)
	switch {
	case errors.Is(err, database.ErrOptimisticLockFailed):
		return nil, ErrStaleCart
	case errors.Is(err, database.ErrCartLineNotFound):
		return nil, ErrNotInCart
	}
	return line, err
}

func (m *Manager) RemoveItem(ctx context.Context, s *models.Session, variantID int64) error {
	err := m.store.RemoveFromCart(ctx, s.ID, variantID)
	if errors.Is(err, database.ErrCartLineNotFound) {
		return ErrNotInCart
	}
	return err
}

func (m *Manager) ClearCart(ctx context.Context, s *models.Session) error {
	_, err := m.store.ClearCart(ctx, s.ID)
	return err
}
