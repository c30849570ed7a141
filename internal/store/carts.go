package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/models"
)

const cartLineColumns = `session_id, variant_id, product_id, product_name, variant_name, image_url,
	unit_price, quantity, created_at, updated_at, version`

func scanCartLine(row scanner) (*models.CartLine, error) {
	l := &models.CartLine{}
	err := row.Scan(
		&l.SessionID,
		&l.VariantID,
		&l.ProductID,
		&l.ProductName,
		&l.VariantName,
		&l.ImageURL,
		&l.UnitPrice,
		&l.Quantity,
		&l.CreatedAt,
		&l.UpdatedAt,
		&l.Version,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func ListCartLines(ctx context.Context, db DBTX, sessionID string) ([]models.CartLine, error) {
	query := `SELECT ` + cartLineColumns + `
		FROM cart_lines
		WHERE session_id = $1
		ORDER BY created_at, variant_id`

	rows, err := db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return lines, nil
}

func GetCartLine(ctx context.Context, db DBTX, sessionID string, variantID int64) (*models.CartLine, error) {
	query := `SELECT ` + cartLineColumns + ` FROM cart_lines WHERE session_id = $1 AND variant_id = $2`

	l, err := scanCartLine(db.QueryRowContext(ctx, query, sessionID, variantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartLineNotFound
		}
		return nil, fmt.Errorf("get cart line: %w", err)
	}
	return l, nil
}

// LockCartLine row-locks a cart line without waiting. A held lock surfaces as ErrLockTimeout
// while staying retryable for database.WithRetry.
func LockCartLine(ctx context.Context, tx *sql.Tx, sessionID string, variantID int64) (*models.CartLine, error) {
	query := `SELECT ` + cartLineColumns + `
		FROM cart_lines
		WHERE session_id = $1 AND variant_id = $2
		FOR UPDATE NOWAIT`

	l, err := scanCartLine(tx.QueryRowContext(ctx, query, sessionID, variantID))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, fmt.Errorf("%w: %w", database.ErrLockTimeout, err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCartLineNotFound
		}
		return nil, fmt.Errorf("lock cart line (nowait): %w", err)
	}
	return l, nil
}

// UpsertCartLine adds line.Quantity to the session's line for the variant, creating it if
// needed, as long as the merged quantity stays within maxQuantity. The price and names are
// refreshed from line.
func UpsertCartLine(ctx context.Context, db DBTX, line models.CartLine, maxQuantity int) (*models.CartLine, error) {
	query := `
		INSERT INTO cart_lines (session_id, variant_id, product_id, product_name, variant_name, image_url,
		                        unit_price, quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		ON CONFLICT (session_id, variant_id) DO UPDATE
		SET quantity = cart_lines.quantity + EXCLUDED.quantity,
		    unit_price = EXCLUDED.unit_price,
		    product_name = EXCLUDED.product_name,
		    variant_name = EXCLUDED.variant_name,
		    image_url = EXCLUDED.image_url,
		    updated_at = NOW(),
		    version = cart_lines.version + 1
		WHERE cart_lines.quantity + EXCLUDED.quantity <= $9
		RETURNING ` + cartLineColumns

	if line.Quantity > maxQuantity {
		return nil, database.ErrInsufficientStock
	}

	l, err := scanCartLine(db.QueryRowContext(ctx, query,
		line.SessionID, line.VariantID, line.ProductID, line.ProductName, line.VariantName,
		line.ImageURL, line.UnitPrice, line.Quantity, maxQuantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInsufficientStock
		}
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return l, nil
}

// UpdateCartQuantityOptimistic sets the quantity if the line is still at version.
func UpdateCartQuantityOptimistic(ctx context.Context, db DBTX, sessionID string, variantID int64, quantity, version int) (*models.CartLine, error) {
	query := `
		UPDATE cart_lines
		SET quantity = $1, updated_at = NOW(), version = version + 1
		WHERE session_id = $2 AND variant_id = $3 AND version = $4
		RETURNING ` + cartLineColumns

	l, err := scanCartLine(db.QueryRowContext(ctx, query, quantity, sessionID, variantID, version))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update cart quantity: %w", err)
	}

	if _, getErr := GetCartLine(ctx, db, sessionID, variantID); getErr != nil {
		return nil, getErr
	}
	return nil, database.ErrOptimisticLockFailed
}

func RemoveCartLine(ctx context.Context, db DBTX, sessionID string, variantID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE session_id = $1 AND variant_id = $2`,
		sessionID, variantID)
	if err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	return expectOne(result, database.ErrCartLineNotFound)
}

// ClearCart empties the session's cart and reports how many lines were removed.
func ClearCart(ctx context.Context, db DBTX, sessionID string) (int, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM cart_lines WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return int(n), nil
}
