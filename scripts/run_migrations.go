package main

import (
	"context"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/config"
	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	n, err := database.Migrate(context.Background(), db, "migrations", direction)
	if err != nil {
		logger.Fatal("migrate", zap.String("direction", direction), zap.Error(err))
	}

	logger.Info("migrations complete", zap.Int("count", n), zap.String("direction", direction))
}
