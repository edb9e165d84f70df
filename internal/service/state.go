package service

import (
	"sort"
	"sync"
	"time"

	"linkwatch/internal/domain"
)

// AccessibleRouters is the set of routers that completed an authenticated
// probe in the current run. Phase-one probes write it concurrently.
type AccessibleRouters struct {
	mu      sync.Mutex
	members map[string]bool
}

// NewAccessibleRouters creates an empty set
func NewAccessibleRouters() *AccessibleRouters {
	return &AccessibleRouters{members: make(map[string]bool)}
}

// Set adds the router when ok and removes it otherwise
func (a *AccessibleRouters) Set(router string, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ok {
		a.members[router] = true
	} else {
		delete(a.members, router)
	}
}

// Has reports membership
func (a *AccessibleRouters) Has(router string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.members[router]
}

// List returns members sorted by name
func (a *AccessibleRouters) List() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.members))
	for r := range a.members {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// StatusBoard holds the current status of every modeled edge.
// It is read by the presentation layer at any time, including mid-run.
type StatusBoard struct {
	mu     sync.RWMutex
	order  []domain.EdgeID
	states map[domain.EdgeID]domain.EdgeState
}

// NewStatusBoard creates a board with every edge unknown
func NewStatusBoard(edges []domain.Edge) *StatusBoard {
	b := &StatusBoard{
		order:  make([]domain.EdgeID, 0, len(edges)),
		states: make(map[domain.EdgeID]domain.EdgeState, len(edges)),
	}
	for _, e := range edges {
		b.order = append(b.order, e.ID)
		b.states[e.ID] = domain.EdgeState{Edge: e, Status: domain.LinkStatusUnknown}
	}
	return b
}

// Set updates one edge and reports whether its status changed.
// Unknown edges are ignored.
func (b *StatusBoard) Set(id domain.EdgeID, status domain.LinkStatus, at time.Time) (domain.EdgeState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.states[id]
	if !ok {
		return domain.EdgeState{}, false
	}
	changed := st.Status != status
	st.Status = status
	st.UpdatedAt = at
	b.states[id] = st
	return st, changed
}

// Get returns the state of one edge
func (b *StatusBoard) Get(id domain.EdgeID) (domain.EdgeState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.states[id]
	return st, ok
}

// Snapshot returns every edge state in configuration order
func (b *StatusBoard) Snapshot() []domain.EdgeState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.EdgeState, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.states[id])
	}
	return out
}

// Statuses returns a plain edge -> status map
func (b *StatusBoard) Statuses() map[domain.EdgeID]domain.LinkStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[domain.EdgeID]domain.LinkStatus, len(b.states))
	for id, st := range b.states {
		out[id] = st.Status
	}
	return out
}

// Progress is the percentage and label of the current or last run
type Progress struct {
	RunID   string `json:"run_id,omitempty"`
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}
