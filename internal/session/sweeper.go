package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Congxabeng103/bez-storefront/internal/logger"
)

// Sweeper periodically deletes expired sessions and, by cascade, their carts.
type Sweeper struct {
	store Store
	batch int
	cron  *cron.Cron
	now   func() time.Time
}

func NewSweeper(store Store, schedule string, batch int) (*Sweeper, error) {
	if batch <= 0 {
		batch = 500
	}
	s := &Sweeper{store: store, batch: batch, cron: cron.New(), now: time.Now}

	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.Sweep(ctx); err != nil {
			logger.Error("session sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	logger.Info("session sweeper started", zap.Int("batch", s.batch))
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep purges expired sessions batch by batch until a short batch comes back.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	total := 0
	for {
		n, err := s.store.PurgeExpired(ctx, now, s.batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.batch {
			break
		}
	}
	if total > 0 {
		logger.Info("expired sessions purged", zap.Int("count", total))
	}
	return total, nil
}
