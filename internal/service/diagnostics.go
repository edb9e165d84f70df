package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"linkwatch/internal/adapter"
	"linkwatch/internal/domain"
)

var (
	// ErrDeviceNotFound is returned for names absent from the topology
	ErrDeviceNotFound = errors.New("device not found")

	// ErrNotRouter is returned when a router-only operation targets another kind
	ErrNotRouter = errors.New("device is not a router")

	// ErrDiagnosticsUnavailable is returned when a router yields no diagnostics
	ErrDiagnosticsUnavailable = errors.New("diagnostics unavailable")
)

// DiagnosticsProber fetches diagnostics and liveness outside a monitoring run
type DiagnosticsProber interface {
	RunDiagnostics(ctx context.Context, router domain.Device) (domain.Diagnostics, error)
	CheckAccessible(ctx context.Context, router domain.Device) bool
}

// RouterReport is the result of an on-demand diagnostics fetch
type RouterReport struct {
	Router      domain.Device             `json:"router"`
	FetchedAt   time.Time                 `json:"fetched_at"`
	Diagnostics domain.Diagnostics        `json:"diagnostics"`
	Interfaces  []adapter.InterfaceStatus `json:"interfaces,omitempty"`
}

// DeviceDetail describes one device for the presentation layer
type DeviceDetail struct {
	Device     domain.Device      `json:"device"`
	Switch     string             `json:"switch,omitempty"`
	Attached   []string           `json:"attached,omitempty"`
	Edges      []domain.EdgeState `json:"edges"`
	Accessible *bool              `json:"accessible,omitempty"`
}

// DiagnosticsService answers per-device queries
type DiagnosticsService struct {
	monitor *HealthMonitor
	probe   DiagnosticsProber
	bus     *EventBus
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewDiagnosticsService creates a new diagnostics service. Device lookups
// follow the monitor's current topology.
func NewDiagnosticsService(monitor *HealthMonitor, probe DiagnosticsProber, bus *EventBus, clock clockwork.Clock, logger *slog.Logger) *DiagnosticsService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiagnosticsService{
		monitor: monitor,
		probe:   probe,
		bus:     bus,
		clock:   clock,
		logger:  logger.With("component", "diagnostics"),
	}
}

// Fetch runs the diagnostic command set against a router
func (s *DiagnosticsService) Fetch(ctx context.Context, name string) (*RouterReport, error) {
	router, err := s.router(name)
	if err != nil {
		return nil, err
	}

	diag, err := s.probe.RunDiagnostics(ctx, router)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDiagnosticsUnavailable, name, err)
	}
	if !diag.OK() {
		return nil, fmt.Errorf("%w: %s", ErrDiagnosticsUnavailable, name)
	}

	report := &RouterReport{
		Router:      router.Public(),
		FetchedAt:   s.clock.Now(),
		Diagnostics: diag,
	}
	if out, ok := diag[adapter.DiagInterfaces]; ok {
		if rows, err := adapter.ParseInterfaceBrief(out); err == nil {
			report.Interfaces = rows
		} else {
			s.logger.Debug("interface table not parsed", "router", name, "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(Event{
			Type:    EventDiagnostics,
			Payload: map[string]string{"router": name},
		})
	}
	return report, nil
}

// Liveness reports whether the router's session port accepts connections
func (s *DiagnosticsService) Liveness(ctx context.Context, name string) (bool, error) {
	router, err := s.router(name)
	if err != nil {
		return false, err
	}
	return s.probe.CheckAccessible(ctx, router), nil
}

// Describe returns a device with its neighbourhood and current edge states.
// Routers also get a liveness check.
func (s *DiagnosticsService) Describe(ctx context.Context, name string) (*DeviceDetail, error) {
	idx := s.monitor.Context().Index
	d, ok := idx.Device(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	detail := &DeviceDetail{Device: d.Public(), Edges: []domain.EdgeState{}}
	if sw, ok := idx.SwitchOf(name); ok {
		detail.Switch = sw
	}
	for _, a := range idx.AttachedTo(name) {
		detail.Attached = append(detail.Attached, a.Name)
	}
	for _, st := range s.monitor.Edges() {
		if st.Touches(name) {
			detail.Edges = append(detail.Edges, st)
		}
	}

	if d.IsRouter() {
		alive := s.probe.CheckAccessible(ctx, d)
		detail.Accessible = &alive
	}
	return detail, nil
}

func (s *DiagnosticsService) router(name string) (domain.Device, error) {
	d, ok := s.monitor.Context().Index.Device(name)
	if !ok {
		return domain.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	if !d.IsRouter() {
		return domain.Device{}, fmt.Errorf("%w: %s", ErrNotRouter, name)
	}
	return d, nil
}
