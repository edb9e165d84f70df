package adapter

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"linkwatch/internal/metrics"
)

// CommandRunner runs an external command and returns its exit error
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// LocalProbe pings hosts from the machine running the monitor
type LocalProbe struct {
	timeout time.Duration
	goos    string
	run     CommandRunner
	logger  *slog.Logger
}

// NewLocalProbe creates a local probe using the system ping command
func NewLocalProbe(timeout time.Duration, logger *slog.Logger) *LocalProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalProbe{
		timeout: timeout,
		goos:    runtime.GOOS,
		run:     execRunner,
		logger:  logger.With("component", "local_probe"),
	}
}

// WithRunner replaces the command runner
func (p *LocalProbe) WithRunner(run CommandRunner) *LocalProbe {
	p.run = run
	return p
}

// Reachable sends a single echo request. A zero exit status means reachable.
func (p *LocalProbe) Reachable(ctx context.Context, addr string) bool {
	// The ping binary enforces its own timeout; the context is a backstop
	ctx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()

	err := p.run(ctx, "ping", pingArgs(p.goos, p.timeout, addr)...)
	ok := err == nil
	metrics.ObserveProbe(metrics.ProbeLocalPing, ok)
	if err != nil {
		p.logger.Debug("local ping failed", "address", addr, "error", err)
	}
	return ok
}

// pingArgs returns one-packet ping arguments for the platform
func pingArgs(goos string, timeout time.Duration, addr string) []string {
	sec := int(timeout.Seconds())
	if sec < 1 {
		sec = 1
	}

	switch goos {
	case "windows":
		ms := int(timeout.Milliseconds())
		if ms < 1 {
			ms = 1000
		}
		return []string{"-n", "1", "-w", strconv.Itoa(ms), addr}
	case "darwin", "freebsd":
		return []string{"-c", "1", "-t", strconv.Itoa(sec), addr}
	default:
		// Linux ping: -c count, -W timeout in seconds
		return []string{"-c", "1", "-W", strconv.Itoa(sec), addr}
	}
}
