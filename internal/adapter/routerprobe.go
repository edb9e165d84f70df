package adapter

import (
	"context"
	"log/slog"
	"net"
	"strings"

	"linkwatch/internal/domain"
	"linkwatch/internal/metrics"
)

// RouterProbe checks routers over their command-line session.
// Failures are logged with their class and reported as false or empty.
type RouterProbe struct {
	timing Timing
	logger *slog.Logger
}

// NewRouterProbe creates a router probe
func NewRouterProbe(timing Timing, logger *slog.Logger) *RouterProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouterProbe{
		timing: timing,
		logger: logger.With("component", "router_probe"),
	}
}

// CheckAccessible reports whether the router's command port accepts a
// connection. The connection is closed immediately.
func (p *RouterProbe) CheckAccessible(ctx context.Context, router domain.Device) bool {
	dialer := &net.Dialer{Timeout: p.timing.Liveness}
	conn, err := dialer.DialContext(ctx, "tcp", router.SessionAddr())
	ok := err == nil
	metrics.ObserveProbe(metrics.ProbeLiveness, ok)
	if err != nil {
		p.fail(metrics.ProbeLiveness, router, probeErr("dial", router.Name, ErrConnect, err))
		return false
	}
	conn.Close()
	return true
}

// FetchDiagnostics runs the diagnostic command set. An empty result means
// the router could not be reached or refused the login.
func (p *RouterProbe) FetchDiagnostics(ctx context.Context, router domain.Device) domain.Diagnostics {
	diag, err := p.RunDiagnostics(ctx, router)
	metrics.ObserveProbe(metrics.ProbeDiagnostics, err == nil)
	if err != nil {
		p.fail(metrics.ProbeDiagnostics, router, err)
		return domain.Diagnostics{}
	}
	return diag
}

// RunDiagnostics is FetchDiagnostics with the failure returned to the caller
func (p *RouterProbe) RunDiagnostics(ctx context.Context, router domain.Device) (domain.Diagnostics, error) {
	s, err := OpenSession(ctx, router, p.timing, p.logger)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out, err := s.RunCommands(ctx, DiagnosticCommands)
	if err != nil {
		return nil, err
	}
	return domain.Diagnostics(out), nil
}

// PingFrom asks the router to ping addr and reports whether every echo
// came back.
func (p *RouterProbe) PingFrom(ctx context.Context, router domain.Device, addr string) bool {
	ok, err := p.pingFrom(ctx, router, addr)
	metrics.ObserveProbe(metrics.ProbePingFrom, ok)
	if err != nil {
		p.fail(metrics.ProbePingFrom, router, err)
	}
	return ok
}

func (p *RouterProbe) pingFrom(ctx context.Context, router domain.Device, addr string) (bool, error) {
	s, err := OpenSession(ctx, router, p.timing, p.logger)
	if err != nil {
		return false, err
	}
	defer s.Close()

	out, err := s.Run(PingCommand(addr), p.timing.Ping)
	if err != nil {
		return false, err
	}

	p.logger.Debug("remote ping output", "router", router.Name, "target", addr, "output", out)

	if strings.Contains(out, pingSuccessMarker) {
		return true, nil
	}
	if !strings.Contains(out, pingSummaryMarker) {
		return false, probeErr("ping", router.Name, ErrParseMismatch, nil)
	}
	return false, nil
}

func (p *RouterProbe) fail(kind string, router domain.Device, err error) {
	class := Classify(err)
	metrics.ProbeErrors.WithLabelValues(kind, class).Inc()
	p.logger.Warn("probe failed",
		"router", router.Name,
		"kind", kind,
		"class", class,
		"error", err,
	)
}
