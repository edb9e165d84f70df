// Package service implements the monitoring core of linkwatch.
//
// HealthMonitor runs a three-phase reachability check over a MonitoringContext:
// every router is probed concurrently, router-router links are derived from the
// accessible set, then hosts and virtual machines are probed through their
// governing router. Edge status and progress are delivered on an EventBus that
// the presentation layer drains on its own goroutines.
//
// # Runs
//
// At most one run is active at a time; Start returns ErrRunInProgress while a
// run is in flight. Probe failures only ever mark edges down. A run fails only
// when it is cancelled or the orchestration itself panics.
//
// # Supporting services
//
// Scheduler triggers runs on an interval. DiagnosticsService fetches router
// diagnostics and device details on demand, outside any run. Reloader swaps a
// freshly loaded topology into the monitor between runs.
package service
