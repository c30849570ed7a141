package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/logger"
)

// Migrate runs every *.up.sql (or *.down.sql, in reverse) file of dir in name order.
func Migrate(ctx context.Context, db *sql.DB, dir, direction string) (int, error) {
	if direction != "up" && direction != "down" {
		return 0, fmt.Errorf("direction must be 'up' or 'down', got %q", direction)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read migration directory: %w", err)
	}

	suffix := "." + direction + ".sql"
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), suffix) {
			files = append(files, e.Name())
		}
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, fmt.Errorf("read migration file %s: %w", name, err)
		}

		logger.Info("running migration", zap.String("file", name))
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return 0, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return len(files), nil
}
