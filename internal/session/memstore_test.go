package session

import (
	"context"
	"sync"
	"time"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

type cartKey struct {
	session string
	variant int64
}

type memStore struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	lines    map[cartKey]models.CartLine
	touched  int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]models.Session{}, lines: map[cartKey]models.CartLine{}}
}

func (m *memStore) CreateSession(_ context.Context, id string, expiresAt time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.Session{ID: id, ExpiresAt: expiresAt, Version: 1}
	m.sessions[id] = s
	return &s, nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, database.ErrSessionNotFound
	}
	return &s, nil
}

func (m *memStore) UpdateSessionAuth(_ context.Context, s *models.Session) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateAuth(s)
}

func (m *memStore) updateAuth(s *models.Session) (*models.Session, error) {
	cur, ok := m.sessions[s.ID]
	if !ok {
		return nil, database.ErrSessionNotFound
	}
	if cur.Version != s.Version {
		return nil, database.ErrOptimisticLockFailed
	}
	next := *s
	next.Version++
	m.sessions[s.ID] = next
	return &next, nil
}

func (m *memStore) TouchSession(_ context.Context, id string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return database.ErrSessionNotFound
	}
	s.ExpiresAt = expiresAt
	m.sessions[id] = s
	m.touched++
	return nil
}

func (m *memStore) SignOut(_ context.Context, s *models.Session) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cleared := *s
	cleared.Token, cleared.UserID, cleared.Email, cleared.Role = "", nil, "", ""
	out, err := m.updateAuth(&cleared)
	if err != nil {
		return nil, err
	}
	m.clear(s.ID)
	return out, nil
}

func (m *memStore) PurgeExpired(_ context.Context, now time.Time, batch int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if n == batch {
			break
		}
		if s.Expired(now) {
			delete(m.sessions, id)
			m.clear(id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListCart(_ context.Context, sessionID string) ([]models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CartLine{}
	for k, l := range m.lines {
		if k.session == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) AddToCart(_ context.Context, line models.CartLine, maxQuantity int) (*models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cartKey{line.SessionID, line.VariantID}
	if cur, ok := m.lines[k]; ok {
		line.Quantity += cur.Quantity
		line.Version = cur.Version + 1
	} else {
		line.Version = 1
	}
	if line.Quantity > maxQuantity {
		return nil, database.ErrInsufficientStock
	}
	m.lines[k] = line
	return &line, nil
}

func (m *memStore) SetQuantity(_ context.Context, sessionID string, variantID int64, quantity, version int) (*models.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cartKey{sessionID, variantID}
	cur, ok := m.lines[k]
	if !ok {
		return nil, database.ErrCartLineNotFound
	}
	if cur.Version != version {
		return nil, database.ErrOptimisticLockFailed
	}
	cur.Quantity = quantity
	cur.Version++
	m.lines[k] = cur
	return &cur, nil
}

func (m *memStore) RemoveFromCart(_ context.Context, sessionID string, variantID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := cartKey{sessionID, variantID}
	if _, ok := m.lines[k]; !ok {
		return database.ErrCartLineNotFound
	}
	delete(m.lines, k)
	return nil
}

func (m *memStore) ClearCart(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clear(sessionID), nil
}

func (m *memStore) clear(sessionID string) int {
	n := 0
	for k := range m.lines {
		if k.session == sessionID {
			delete(m.lines, k)
			n++
		}
	}
	return n
}
