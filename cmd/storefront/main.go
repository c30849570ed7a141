package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/address"
	"github.com/Congxabeng103/bez-storefront/internal/admin"
	"github.com/Congxabeng103/bez-storefront/internal/api"
	"github.com/Congxabeng103/bez-storefront/internal/backend"
	"github.com/Congxabeng103/bez-storefront/internal/checkout"
	"github.com/Congxabeng103/bez-storefront/internal/config"
	"github.com/Congxabeng103/bez-storefront/internal/database"
	"github.com/Congxabeng103/bez-storefront/internal/logger"
	"github.com/Congxabeng103/bez-storefront/internal/models"
	"github.com/Congxabeng103/bez-storefront/internal/pricing"
	"github.com/Congxabeng103/bez-storefront/internal/session"
)

func main() {
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// the address client falls back to the upstream API on cache errors
		logger.Warn("redis unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	restAPI := backend.NewAPI(backend.New(cfg.Backend.BaseURL, backend.WithTimeout(cfg.Backend.Timeout)))
	addresses := address.New(cfg.Address.BaseURL, address.NewRedisCache(rdb, "address:"), address.Options{
		CacheTTL:  cfg.Address.CacheTTL,
		RateLimit: cfg.Address.RateLimit,
		Burst:     cfg.Address.Burst,
	})

	sessionStore := session.NewPGStore(db)
	sessions := session.NewManager(sessionStore, restAPI.Variants, cfg.Session.TTL)

	sweeper, err := session.NewSweeper(sessionStore, cfg.Session.SweepSchedule, cfg.Session.SweepBatch)
	if err != nil {
		logger.Fatal("session sweeper", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	loc := cfg.Pricing.Location()
	checkouts := checkout.NewService(checkout.Deps{
		Carts:      sessions,
		Promotions: restAPI.Promotions,
		Coupons:    restAPI.Coupons,
		Orders:     restAPI.Orders,
		Attempts:   checkout.NewPGAttempts(db),
		Shipping:   pricing.NewShippingPolicy(cfg.Pricing.ShippingFee),
		Location:   loc,
	})
	console := admin.NewConsole(restAPI, func() models.Date { return pricing.Today(time.Now(), loc) })

	server := api.NewServer(api.Deps{
		Sessions: sessions,
		Checkout: checkouts,
		Backend:  restAPI,
		Address:  addresses,
		Admin:    console,
		Cookie:   api.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Server.CookieSecure},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	logger.Info("storefront starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}

	<-idleConnsClosed
	logger.Info("storefront stopped")
}
