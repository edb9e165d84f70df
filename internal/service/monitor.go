package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"linkwatch/internal/domain"
	"linkwatch/internal/metrics"
)

var (
	// ErrRunInProgress is returned when a run is requested while one is active
	ErrRunInProgress = errors.New("monitoring run already in progress")

	// ErrRunPanicked wraps a panic recovered inside the orchestration loop
	ErrRunPanicked = errors.New("monitoring run panicked")
)

// ReloadPayload is the payload of EventTopologyReloaded
type ReloadPayload struct {
	Source  string `json:"source"`
	Devices int    `json:"devices"`
	Edges   int    `json:"edges"`
}

// Progress bands per phase
const (
	routersPhaseEnd = 30
	linksPhaseEnd   = 50
	hostsPhaseEnd   = 80
	completePercent = 100
)

// Phase names a band of the run as shown in progress labels
type Phase string

const (
	PhaseRouters     Phase = "routers"
	PhaseRouterLinks Phase = "router links"
	PhaseHosts       Phase = "hosts"
)

// Run outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// RunSummary describes a finished run
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Accessible []string  `json:"accessible_routers"`
}

// Duration returns how long the run took
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// EdgeStatusPayload is the payload of EventEdgeStatus
type EdgeStatusPayload struct {
	RunID  string            `json:"run_id"`
	Edge   domain.EdgeID     `json:"edge"`
	A      string            `json:"a"`
	B      string            `json:"b"`
	Status domain.LinkStatus `json:"status"`
}

// MonitorStatus is a point-in-time view of the monitor
type MonitorStatus struct {
	Running    bool        `json:"running"`
	RunID      string      `json:"run_id,omitempty"`
	Progress   Progress    `json:"progress"`
	Accessible []string    `json:"accessible_routers"`
	LastRun    *RunSummary `json:"last_run,omitempty"`
}

// HealthMonitor runs the three-phase reachability check over a topology.
// At most one run is active at a time.
type HealthMonitor struct {
	bus    *EventBus
	clock  clockwork.Clock
	logger *slog.Logger

	mu         sync.Mutex
	mc         *MonitoringContext
	board      *StatusBoard
	running    bool
	runID      string
	cancel     context.CancelFunc
	progress   Progress
	accessible *AccessibleRouters
	last       *RunSummary
	wg         sync.WaitGroup
}

// NewHealthMonitor creates a monitor. A nil clock uses the real clock.
func NewHealthMonitor(mc *MonitoringContext, bus *EventBus, clock clockwork.Clock, logger *slog.Logger) *HealthMonitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = NewEventBus()
	}
	return &HealthMonitor{
		mc:         mc,
		board:      NewStatusBoard(mc.Topology.Edges),
		bus:        bus,
		clock:      clock,
		logger:     logger.With("component", "monitor"),
		accessible: NewAccessibleRouters(),
	}
}

// Start launches a run in the background and returns its ID.
// The run is detached from ctx cancellation; use Cancel to stop it.
func (m *HealthMonitor) Start(ctx context.Context) (string, error) {
	runCtx, id, err := m.begin(context.WithoutCancel(ctx))
	if err != nil {
		return "", err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_, _ = m.execute(runCtx, id)
	}()
	return id, nil
}

// Run performs a run synchronously and returns its summary.
// The returned error is non-nil when the run failed.
func (m *HealthMonitor) Run(ctx context.Context) (*RunSummary, error) {
	runCtx, id, err := m.begin(ctx)
	if err != nil {
		return nil, err
	}
	return m.execute(runCtx, id)
}

// Cancel stops the active run. It reports whether a run was active.
func (m *HealthMonitor) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Wait blocks until background runs started by Start have finished
func (m *HealthMonitor) Wait() {
	m.wg.Wait()
}

// Running reports whether a run is active
func (m *HealthMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Edges returns the current status of every edge
func (m *HealthMonitor) Edges() []domain.EdgeState {
	return m.currentBoard().Snapshot()
}

// Edge returns the current status of one edge
func (m *HealthMonitor) Edge(a, b string) (domain.EdgeState, bool) {
	return m.currentBoard().Get(domain.NewEdgeID(a, b))
}

// Context returns the monitoring context the next run will use
func (m *HealthMonitor) Context() *MonitoringContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mc
}

// Reload swaps in a new monitoring context between runs. Edge status,
// progress and the accessible set start over. It returns ErrRunInProgress
// while a run is active.
func (m *HealthMonitor) Reload(mc *MonitoringContext, source string) error {
	if mc == nil {
		return fmt.Errorf("%w: nil monitoring context", domain.ErrInvalidTopology)
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrRunInProgress
	}
	m.mc = mc
	m.board = NewStatusBoard(mc.Topology.Edges)
	m.progress = Progress{}
	m.accessible = NewAccessibleRouters()
	m.mu.Unlock()

	payload := ReloadPayload{
		Source:  source,
		Devices: len(mc.Topology.Devices),
		Edges:   len(mc.Topology.Edges),
	}
	m.logger.Info("topology reloaded", "source", source, "devices", payload.Devices, "edges", payload.Edges)
	m.bus.Publish(Event{Type: EventTopologyReloaded, Payload: payload})
	return nil
}

func (m *HealthMonitor) currentBoard() *StatusBoard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.board
}

// Progress returns the progress of the active or last run
func (m *HealthMonitor) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// LastRun returns the summary of the last finished run, or nil
func (m *HealthMonitor) LastRun() *RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	s := *m.last
	return &s
}

// Status returns a combined view for the presentation layer
func (m *HealthMonitor) Status() MonitorStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := MonitorStatus{
		Running:    m.running,
		Progress:   m.progress,
		Accessible: m.accessible.List(),
	}
	if m.running {
		st.RunID = m.runID
	}
	if m.last != nil {
		s := *m.last
		st.LastRun = &s
	}
	return st
}

// Events returns the bus runs publish to
func (m *HealthMonitor) Events() *EventBus {
	return m.bus
}

func (m *HealthMonitor) begin(ctx context.Context) (context.Context, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil, "", ErrRunInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.runID = uuid.NewString()
	m.cancel = cancel
	m.accessible = NewAccessibleRouters()
	return runCtx, m.runID, nil
}

func (m *HealthMonitor) finish(summary *RunSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.last = summary
}

// execute drives one run through all phases and publishes its outcome
func (m *HealthMonitor) execute(ctx context.Context, id string) (*RunSummary, error) {
	r := &run{
		id:     id,
		m:      m,
		logger: m.logger.With("run_id", id),
	}

	m.mu.Lock()
	r.mc = m.mc
	r.board = m.board
	r.accessible = m.accessible
	m.mu.Unlock()

	summary := &RunSummary{ID: id, StartedAt: m.clock.Now()}
	r.logger.Info("monitoring run started")
	m.bus.Publish(Event{Type: EventRunStarted, Payload: map[string]string{"run_id": id}})
	r.reset()

	err := r.safely(func() error { return r.phases(ctx) })

	summary.FinishedAt = m.clock.Now()
	summary.Accessible = r.accessible.List()
	metrics.RunDuration.Observe(summary.Duration().Seconds())

	if err != nil {
		summary.Outcome = OutcomeFailed
		summary.Error = err.Error()
		r.setLabel(fmt.Sprintf("Failed: %v", err))
		metrics.RunsTotal.WithLabelValues(OutcomeFailed).Inc()
		r.logger.Error("monitoring run failed", "error", err)
		m.finish(summary)
		m.bus.Publish(Event{Type: EventRunFailed, Payload: *summary})
		return summary, err
	}

	summary.Outcome = OutcomeCompleted
	r.complete()
	metrics.RunsTotal.WithLabelValues(OutcomeCompleted).Inc()
	r.logger.Info("monitoring run completed",
		"accessible", len(summary.Accessible),
		"duration", summary.Duration())
	m.finish(summary)
	m.bus.Publish(Event{Type: EventRunCompleted, Payload: *summary})
	return summary, nil
}

// run holds the state scoped to a single monitoring run
type run struct {
	id         string
	m          *HealthMonitor
	mc         *MonitoringContext
	board      *StatusBoard
	accessible *AccessibleRouters
	logger     *slog.Logger

	mu        sync.Mutex
	completed int
}

// safely converts a panic in fn into an error
func (r *run) safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrRunPanicked, p)
		}
	}()
	return fn()
}

func (r *run) phases(ctx context.Context) error {
	if err := r.routersPhase(ctx); err != nil {
		return err
	}
	if err := r.routerLinksPhase(ctx); err != nil {
		return err
	}
	return r.hostsPhase(ctx)
}

// routersPhase probes every router concurrently and waits for all of them
func (r *run) routersPhase(ctx context.Context) error {
	routers := r.mc.Topology.Routers()
	logger := r.logger.With("phase", "routers")
	logger.Debug("probing routers", "count", len(routers))

	g, gctx := errgroup.WithContext(ctx)
	for _, router := range routers {
		g.Go(func() error {
			return r.safely(func() error {
				diag := r.mc.Routers.FetchDiagnostics(gctx, router)
				r.recordRouter(router, diag.OK())
				r.advanceRouters(len(routers))
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if len(routers) == 0 {
		r.advance(PhaseRouters, routersPhaseEnd)
	}
	return ctx.Err()
}

// recordRouter updates membership and the edges to the router's attached devices
func (r *run) recordRouter(router domain.Device, ok bool) {
	r.accessible.Set(router.Name, ok)
	r.logger.Debug("router probed", "router", router.Name, "accessible", ok)

	idx := r.mc.Index
	for _, d := range idx.AttachedTo(router.Name) {
		e, exists := idx.Edge(router.Name, d.Name)
		if !exists {
			continue
		}
		status := domain.LinkStatusDown
		if ok && d.Kind == domain.DeviceKindSwitch {
			status = domain.LinkStatusUp
		}
		r.setEdge(e, status)
	}
}

func (r *run) advanceRouters(total int) {
	r.mu.Lock()
	r.completed++
	done := r.completed
	r.mu.Unlock()
	r.advance(PhaseRouters, scale(0, routersPhaseEnd, done, total))
}

// routerLinksPhase marks each router-router edge up iff both ends are accessible
func (r *run) routerLinksPhase(ctx context.Context) error {
	links := r.mc.routerLinks()
	for i, e := range links {
		if err := ctx.Err(); err != nil {
			return err
		}
		up := r.accessible.Has(e.A) && r.accessible.Has(e.B)
		r.setEdge(e, domain.LinkStatusFromBool(up))
		r.advance(PhaseRouterLinks, scale(routersPhaseEnd, linksPhaseEnd, i+1, len(links)))
	}
	r.advance(PhaseRouterLinks, linksPhaseEnd)
	return nil
}

// hostsPhase probes hosts and VMs sequentially in configuration order
func (r *run) hostsPhase(ctx context.Context) error {
	endpoints := r.mc.Topology.Endpoints()
	for i, d := range endpoints {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.probeEndpoint(ctx, d)
		r.advance(PhaseHosts, scale(linksPhaseEnd, hostsPhaseEnd, i+1, len(endpoints)))
	}
	r.advance(PhaseHosts, hostsPhaseEnd)
	return ctx.Err()
}

func (r *run) probeEndpoint(ctx context.Context, d domain.Device) {
	idx := r.mc.Index
	logger := r.logger.With("phase", "hosts", "device", d.Name)
	sw, hasSwitch := idx.SwitchOf(d.Name)

	gov, ok := idx.GoverningRouter(d.Name, r.accessible)
	if !ok {
		logger.Debug("no governing router; skipping probe")
		if hasSwitch {
			r.setEdgeBetween(sw, d.Name, domain.LinkStatusDown)
		}
		return
	}

	if d.Kind == domain.DeviceKindVM {
		router, _ := idx.Device(gov)
		status := domain.LinkStatusFromBool(r.mc.Routers.PingFrom(ctx, router, d.Address))
		logger.Debug("vm probed", "router", gov, "status", status)
		if hasSwitch {
			r.setEdgeBetween(sw, d.Name, status)
			r.setEdgeBetween(gov, sw, status)
		} else {
			r.setEdgeBetween(gov, d.Name, status)
		}
		return
	}

	status := domain.LinkStatusFromBool(r.mc.Hosts.Reachable(ctx, d.Address))
	logger.Debug("host probed", "router", gov, "status", status)
	if e, exists := idx.Edge(gov, d.Name); exists {
		r.setEdge(e, status)
	} else if hasSwitch {
		r.setEdgeBetween(sw, d.Name, status)
	}
}

// reset marks every edge unknown and zeroes progress
func (r *run) reset() {
	for _, st := range r.board.Snapshot() {
		r.setEdge(st.Edge, domain.LinkStatusUnknown)
	}
	r.m.mu.Lock()
	r.publishProgress(Progress{RunID: r.id, Percent: 0, Label: progressLabel(PhaseRouters, 0)})
	r.m.mu.Unlock()
}

func (r *run) setEdgeBetween(a, b string, status domain.LinkStatus) {
	if e, ok := r.mc.Index.Edge(a, b); ok {
		r.setEdge(e, status)
	}
}

// setEdge records a status and publishes an event when it changed
func (r *run) setEdge(e domain.Edge, status domain.LinkStatus) {
	_, changed := r.board.Set(e.ID, status, r.m.clock.Now())
	metrics.EdgeStatus.WithLabelValues(e.String()).Set(gaugeValue(status))
	if !changed {
		return
	}
	r.m.bus.Publish(Event{Type: EventEdgeStatus, Payload: EdgeStatusPayload{
		RunID:  r.id,
		Edge:   e.ID,
		A:      e.A,
		B:      e.B,
		Status: status,
	}})
}

// advance raises progress to pct within phase. Progress never decreases
// within a run. Events are published under the lock so subscribers see them
// in order.
func (r *run) advance(phase Phase, pct int) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if pct <= r.m.progress.Percent {
		return
	}
	r.publishProgress(Progress{RunID: r.id, Percent: pct, Label: progressLabel(phase, pct)})
}

func (r *run) complete() {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.publishProgress(Progress{
		RunID:   r.id,
		Percent: completePercent,
		Label:   fmt.Sprintf("Completed: %d%%", completePercent),
	})
}

// publishProgress must be called with r.m.mu held
func (r *run) publishProgress(p Progress) {
	r.m.progress = p
	r.m.bus.Publish(Event{Type: EventProgress, Payload: p})
}

func (r *run) setLabel(label string) {
	r.m.mu.Lock()
	r.m.progress.Label = label
	r.m.mu.Unlock()
}

func progressLabel(phase Phase, pct int) string {
	return fmt.Sprintf("Checking %s: %d%%", phase, pct)
}

// scale maps done/total into the [lo, hi] band
func scale(lo, hi, done, total int) int {
	if total <= 0 {
		return hi
	}
	return lo + (hi-lo)*done/total
}

func gaugeValue(s domain.LinkStatus) float64 {
	switch s {
	case domain.LinkStatusUp:
		return 1
	case domain.LinkStatusDown:
		return 0
	default:
		return -1
	}
}
