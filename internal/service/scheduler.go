package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler triggers monitoring runs on a fixed interval.
// Ticks that land while a run is active are skipped.
type Scheduler struct {
	monitor  *HealthMonitor
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	skipped int
}

// NewScheduler creates a scheduler. A nil clock uses the real clock.
func NewScheduler(monitor *HealthMonitor, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		monitor:  monitor,
		interval: interval,
		clock:    clock,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start begins the polling loop. A non-positive interval disables it.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Debug("periodic runs disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// Run initial pass
		s.trigger(ctx)

		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.trigger(ctx)
			}
		}
	}()

	s.logger.Info("periodic runs enabled", "interval", s.interval)
}

// Stop ends the polling loop and waits for it to exit.
// An in-flight run is left to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Skipped returns how many ticks were skipped because a run was active
func (s *Scheduler) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *Scheduler) trigger(ctx context.Context) {
	id, err := s.monitor.Start(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Info("skipping scheduled run; previous run still active")
	case err != nil:
		s.logger.Error("scheduled run failed to start", "error", err)
	default:
		s.logger.Debug("scheduled run started", "run_id", id)
	}
}
