package redemption

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically moves active redemptions past their expiry to
// status=expired.
type Sweeper struct {
	store    Store
	schedule string
	logger   *zap.Logger
	now      func() time.Time
	cron     *cron.Cron
}

// NewSweeper creates a sweeper for a standard cron schedule
// ("*/15 * * * *", "@every 15m").
func NewSweeper(store Store, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("redemption store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{
		store:    store,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
		cron:     cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Sweep runs one pass and returns the number of records expired.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("expiring redemptions: %w", err)
	}
	sweptTotal.Add(float64(n))
	return n, nil
}

func (s *Sweeper) run() {
	n, err := s.Sweep(context.Background())
	if err != nil {
		s.logger.Error("redemption sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired redemptions", zap.Int64("count", n))
	}
}

// Start begins running on the schedule in a background goroutine.
func (s *Sweeper) Start() {
	s.logger.Info("redemption sweeper started", zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts scheduling and waits for a running pass, or ctx, to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
