package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

const sessionColumns = `id, token, user_id, email, role, expires_at, created_at, updated_at, version`

func scanSession(row scanner) (*models.Session, error) {
	s := &models.Session{}
	var userID sql.NullInt64
	err := row.Scan(
		&s.ID,
		&s.Token,
		&userID,
		&s.Email,
		&s.Role,
		&s.ExpiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Version,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		s.UserID = &id
	}
	return s, nil
}

func CreateSession(ctx context.Context, db DBTX, id string, expiresAt time.Time) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, expires_at, created_at, updated_at, version)
		VALUES ($1, $2, NOW(), NOW(), 1)
		RETURNING ` + sessionColumns

	s, err := scanSession(db.QueryRowContext(ctx, query, id, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func GetSession(ctx context.Context, db DBTX, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`

	s, err := scanSession(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// UpdateSessionAuth writes the token and identity fields of s if its version is still current.
// An empty token signs the session out.
func UpdateSessionAuth(ctx context.Context, db DBTX, s *models.Session) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET token = $1, user_id = $2, email = $3, role = $4, expires_at = $5,
		    updated_at = NOW(), version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING ` + sessionColumns

	var userID sql.NullInt64
	if s.UserID != nil {
		userID = sql.NullInt64{Int64: *s.UserID, Valid: true}
	}

	updated, err := scanSession(db.QueryRowContext(ctx, query,
		s.Token, userID, s.Email, s.Role, s.ExpiresAt, s.ID, s.Version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, versionMiss(ctx, db, s.ID)
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return updated, nil
}

// TouchSession extends the expiry of a live session.
func TouchSession(ctx context.Context, db DBTX, id string, expiresAt time.Time) error {
	result, err := db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = $1, updated_at = NOW() WHERE id = $2`,
		expiresAt, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return expectOne(result, database.ErrSessionNotFound)
}

func DeleteSession(ctx context.Context, db DBTX, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectOne(result, database.ErrSessionNotFound)
}

// PurgeExpiredSessions deletes up to batch sessions that expired before now. Rows locked by
// a concurrent sweeper are skipped rather than waited on.
func PurgeExpiredSessions(ctx context.Context, db *sql.DB, now time.Time, batch int) (int, error) {
	var purged int64

	err := database.WithRetry(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM sessions
			WHERE id IN (
				SELECT id FROM sessions
				WHERE expires_at <= $1
				ORDER BY expires_at
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)`, now, batch)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}

		purged, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(purged), nil
}

func versionMiss(ctx context.Context, db DBTX, id string) error {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session exists: %w", err)
	}
	if !exists {
		return database.ErrSessionNotFound
	}
	return database.ErrOptimisticLockFailed
}

func expectOne(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
