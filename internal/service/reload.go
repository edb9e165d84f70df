package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"linkwatch/internal/domain"
)

// defaultReloadRetry is how long a reload waits before retrying while a run is active
const defaultReloadRetry = time.Second

// TopologySaver persists a topology after a successful reload
type TopologySaver interface {
	SaveTopology(ctx context.Context, topo *domain.Topology, source string) error
}

// TopologyLoader reads a topology document from path
type TopologyLoader func(path string) (*domain.Topology, error)

// Reloader rebuilds the monitoring context from a topology file and swaps it
// into the monitor once no run is active.
type Reloader struct {
	monitor *HealthMonitor
	routers RouterProber
	hosts   HostProber
	load    TopologyLoader
	store   TopologySaver
	clock   clockwork.Clock
	retry   time.Duration
	logger  *slog.Logger
}

// NewReloader creates a reloader. store may be nil.
func NewReloader(monitor *HealthMonitor, routers RouterProber, hosts HostProber, load TopologyLoader, store TopologySaver, clock clockwork.Clock, logger *slog.Logger) *Reloader {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		monitor: monitor,
		routers: routers,
		hosts:   hosts,
		load:    load,
		store:   store,
		clock:   clock,
		retry:   defaultReloadRetry,
		logger:  logger.With("component", "reloader"),
	}
}

// Reload loads path and applies it. An invalid document leaves the current
// topology in place. While a run is active the swap is retried until it
// succeeds or ctx is done.
func (r *Reloader) Reload(ctx context.Context, path string) error {
	topo, err := r.load(path)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}
	mc, err := NewMonitoringContext(topo, r.routers, r.hosts)
	if err != nil {
		return fmt.Errorf("build monitoring context: %w", err)
	}

	for {
		err := r.monitor.Reload(mc, path)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrRunInProgress) {
			return err
		}
		r.logger.Debug("run in progress; deferring reload", "retry", r.retry)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(r.retry):
		}
	}

	if r.store != nil {
		if err := r.store.SaveTopology(ctx, topo, path); err != nil {
			return fmt.Errorf("save topology: %w", err)
		}
	}
	return nil
}
