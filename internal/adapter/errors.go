package adapter

import (
	"errors"
	"fmt"
)

// Probe failure classes. Every probe failure is reported upstream as
// "down" or "inaccessible"; the class only feeds logs and metrics.
var (
	ErrConnect       = errors.New("connect failed")
	ErrAuth          = errors.New("authentication failed")
	ErrProbeTimeout  = errors.New("probe timed out")
	ErrParseMismatch = errors.New("expected marker not found")
)

// ProbeError describes a failed step of a probe against one target
type ProbeError struct {
	Op     string // e.g. "dial", "login", "command"
	Target string // device name
	Kind   error  // one of the Err* classes above
	Err    error  // underlying cause, may be nil
}

func (e *ProbeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Target, e.Kind, e.Err)
}

// Unwrap exposes both the class and the cause to errors.Is / errors.As
func (e *ProbeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func probeErr(op, target string, kind, err error) *ProbeError {
	return &ProbeError{Op: op, Target: target, Kind: kind, Err: err}
}

// Classify returns a short label for the failure class of err
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrProbeTimeout):
		return "timeout"
	case errors.Is(err, ErrParseMismatch):
		return "parse"
	case errors.Is(err, ErrConnect):
		return "connect"
	default:
		return "other"
	}
}
