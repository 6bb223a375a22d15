// Package scheduler fires the refresh tick on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Ticker is run on every scheduler tick.
type Ticker interface {
	Tick(ctx context.Context)
}

// Scheduler runs a Ticker every interval. A tick still running when the next
// one is due is not overlapped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. Intervals below one second are rounded up to one.
func New(ticker Ticker, interval time.Duration, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		ticker:    ticker,
		interval:  max(interval, time.Second),
		logger:    logger,
	}
}

// Start schedules the job and starts the underlying scheduler. The first tick
// fires after one interval; ticks use ctx until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		if ctx.Err() != nil {
			return
		}
		s.ticker.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule refresh tick: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future ticks.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
