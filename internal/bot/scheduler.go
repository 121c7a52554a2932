package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmylchreest/notemuse/internal/logger"
)

// CycleFunc runs one cycle.
type CycleFunc func(ctx context.Context) error

// Scheduler runs a cycle immediately and then on every tick of Interval.
type Scheduler struct {
	Interval time.Duration
	Cycle    CycleFunc

	// KeepGoing logs cycle errors and waits for the next tick instead of
	// stopping the scheduler.
	KeepGoing bool
}

// Run blocks until ctx is done or, unless KeepGoing is set, a cycle fails.
// Cancellation is not an error.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.Interval)
	}
	if s.Cycle == nil {
		return fmt.Errorf("scheduler has no cycle")
	}
	log := logger.Component("scheduler")

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	runs := 0
	for {
		runs++
		if err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info("scheduler stopped during cycle", "run", runs, "error", err)
				return nil
			}
			if !s.KeepGoing {
				log.Error("cycle failed, stopping", "run", runs, "error", err)
				return err
			}
			log.Error("cycle failed", "run", runs, "error", err)
		}

		log.Debug("waiting for next cycle", "interval", s.Interval)
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped", "runs", runs)
			return nil
		case <-ticker.C:
		}
	}
}

// Cycle adapts RunCycle for a Scheduler.
func (b *Bot) Cycle(ctx context.Context) error {
	_, err := b.RunCycle(ctx)
	return err
}
