package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

func newSession(t *testing.T, db *sql.DB, ttl time.Duration) *models.Session {
	t.Helper()
	s, err := CreateSession(context.Background(), db, uuid.NewString(), time.Now().Add(ttl))
	require.NoError(t, err)
	return s
}

func shoeLine(sessionID string, qty int) models.CartLine {
	return models.CartLine{
		SessionID:   sessionID,
		VariantID:   101,
		ProductID:   7,
		ProductName: "Running shoe",
		VariantName: "Black / 42",
		UnitPrice:   decimal.NewFromInt(550000),
		Quantity:    qty,
	}
}

func TestStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("session auth round trip", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		assert.False(t, s.Authenticated())
		assert.Equal(t, 1, s.Version)

		userID := int64(42)
		s.Token, s.UserID, s.Email, s.Role = "jwt", &userID, "a@b.vn", models.RoleCustomer
		updated, err := UpdateSessionAuth(ctx, db, s)
		require.NoError(t, err)
		assert.True(t, updated.Authenticated())
		assert.Equal(t, 2, updated.Version)
		require.NotNil(t, updated.UserID)
		assert.Equal(t, int64(42), *updated.UserID)

		// stale version
		_, err = UpdateSessionAuth(ctx, db, s)
		assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

		got, err := GetSession(ctx, db, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "jwt", got.Token)

		require.NoError(t, DeleteSession(ctx, db, s.ID))
		_, err = GetSession(ctx, db, s.ID)
		assert.ErrorIs(t, err, database.ErrSessionNotFound)
	})

	t.Run("cart upsert merges quantity within stock", func(t *testing.T) {
		s := newSession(t, db, time.Hour)

		l, err := UpsertCartLine(ctx, db, shoeLine(s.ID, 2), 5)
		require.NoError(t, err)
		assert.Equal(t, 2, l.Quantity)
		assert.Equal(t, 1, l.Version)

		l, err = UpsertCartLine(ctx, db, shoeLine(s.ID, 3), 5)
		require.NoError(t, err)
		assert.Equal(t, 5, l.Quantity)
		assert.Equal(t, 2, l.Version)

		_, err = UpsertCartLine(ctx, db, shoeLine(s.ID, 1), 5)
		assert.ErrorIs(t, err, database.ErrInsufficientStock)

		lines, err := ListCartLines(ctx, db, s.ID)
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(550000)))
	})

	t.Run("cart optimistic quantity update", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		l, err := UpsertCartLine(ctx, db, shoeLine(s.ID, 1), 10)
		require.NoError(t, err)

		updated, err := UpdateCartQuantityOptimistic(ctx, db, s.ID, l.VariantID, 4, l.Version)
		require.NoError(t, err)
		assert.Equal(t, 4, updated.Quantity)

		_, err = UpdateCartQuantityOptimistic(ctx, db, s.ID, l.VariantID, 6, l.Version)
		assert.ErrorIs(t, err, database.ErrOptimisticLockFailed)

		_, err = UpdateCartQuantityOptimistic(ctx, db, s.ID, 999, 1, 1)
		assert.ErrorIs(t, err, database.ErrCartLineNotFound)
	})

	t.Run("concurrent quantity updates with same version", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		l, err := UpsertCartLine(ctx, db, shoeLine(s.ID, 1), 10)
		require.NoError(t, err)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var ok, conflicts int
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(qty int) {
				defer wg.Done()
				_, err := UpdateCartQuantityOptimistic(ctx, db, s.ID, l.VariantID, qty, l.Version)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if errors.Is(err, database.ErrOptimisticLockFailed) {
					conflicts++
				}
			}(i + 2)
		}
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, 4, conflicts)
	})

	t.Run("lock cart line nowait", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		_, err := UpsertCartLine(ctx, db, shoeLine(s.ID, 1), 10)
		require.NoError(t, err)

		tx1, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx1.Rollback()
		_, err = LockCartLine(ctx, tx1, s.ID, 101)
		require.NoError(t, err)

		tx2, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		defer tx2.Rollback()
		_, err = LockCartLine(ctx, tx2, s.ID, 101)
		assert.ErrorIs(t, err, database.ErrLockTimeout)
		assert.True(t, database.IsRetryable(err))
	})

	t.Run("remove and clear", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		line := shoeLine(s.ID, 1)
		_, err := UpsertCartLine(ctx, db, line, 10)
		require.NoError(t, err)
		line.VariantID = 102
		_, err = UpsertCartLine(ctx, db, line, 10)
		require.NoError(t, err)

		require.NoError(t, RemoveCartLine(ctx, db, s.ID, 101))
		assert.ErrorIs(t, RemoveCartLine(ctx, db, s.ID, 101), database.ErrCartLineNotFound)

		n, err := ClearCart(ctx, db, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("purge expired sessions cascades to cart", func(t *testing.T) {
		expired := newSession(t, db, -time.Minute)
		live := newSession(t, db, time.Hour)
		_, err := UpsertCartLine(ctx, db, shoeLine(expired.ID, 1), 10)
		require.NoError(t, err)

		n, err := PurgeExpiredSessions(ctx, db, time.Now(), 100)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		_, err = GetSession(ctx, db, expired.ID)
		assert.ErrorIs(t, err, database.ErrSessionNotFound)
		_, err = GetSession(ctx, db, live.ID)
		assert.NoError(t, err)

		lines, err := ListCartLines(ctx, db, expired.ID)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("checkout history pages newest first", func(t *testing.T) {
		s := newSession(t, db, time.Hour)
		for i := 0; i < 5; i++ {
			_, err := RecordCheckout(ctx, db, models.CheckoutAttempt{
				ID:          uuid.NewString(),
				SessionID:   s.ID,
				OrderNumber: "ORD-" + string(rune('A'+i)),
				QuotedTotal: decimal.NewFromInt(525000),
				FinalTotal:  decimal.NewFromInt(525000),
				Outcome:     models.CheckoutOutcomeSubmitted,
			})
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		page, err := ListCheckoutsCursor(ctx, db, s.ID, "", 2)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		assert.Equal(t, "ORD-E", page.Items[0].OrderNumber)

		var seen []string
		cursor := ""
		for {
			page, err := ListCheckoutsCursor(ctx, db, s.ID, cursor, 2)
			require.NoError(t, err)
			for _, a := range page.Items {
				seen = append(seen, a.OrderNumber)
			}
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
		assert.Equal(t, []string{"ORD-E", "ORD-D", "ORD-C", "ORD-B", "ORD-A"}, seen)

		got, err := GetCheckout(ctx, db, s.ID, uuid.NewString())
		assert.Nil(t, got)
		assert.ErrorIs(t, err, database.ErrCheckoutNotFound)
	})
}
