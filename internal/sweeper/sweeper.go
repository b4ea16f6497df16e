// Package sweeper periodically removes expired lockout records.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Target deletes expired records and reports how many were removed.
type Target interface {
	Sweep(ctx context.Context) (int64, error)
}

// Sweeper runs Target on a cron schedule.
type Sweeper struct {
	target  Target
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// New creates a sweeper for the given schedule ("@every 1h", "0 * * * *", ...).
func New(target Target, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sweeper{
		target:  target,
		cron:    cron.New(),
		logger:  logger,
		timeout: 30 * time.Second,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Sweeper) Start() {
	s.logger.Info("lockout sweeper started")
	s.cron.Start()
}

// Stop stops the schedule and waits for a running sweep, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("lockout sweeper stopped")
	case <-ctx.Done():
		s.logger.Warn("lockout sweeper stop timed out")
	}
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.target.Sweep(ctx)
	if err != nil {
		s.logger.Error("lockout sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired lockouts removed", "count", n)
	}
	return n, nil
}

func (s *Sweeper) run() {
	s.RunOnce(context.Background())
}
