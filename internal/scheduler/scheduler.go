package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Checker is one monitoring pass. Passes run sequentially; a pass never
// overlaps the next one.
type Checker interface {
	Check(ctx context.Context) error
}

type Scheduler struct {
	checker  Checker
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(checker Checker, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		checker:  checker,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCheck(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCheck(ctx)
		}
	}
}

func (s *Scheduler) runCheck(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if err := s.checker.Check(checkCtx); err != nil {
		s.logger.Error("check failed", "error", err)
	}
}
