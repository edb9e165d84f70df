package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"linkwatch/internal/domain"
	"linkwatch/internal/loader"
)

// fakeRouters scripts router probe outcomes by router name
type fakeRouters struct {
	mu        sync.Mutex
	down      map[string]bool // routers whose diagnostics come back empty
	vmDown    bool
	panicOn   string
	hold      chan struct{} // when set, FetchDiagnostics blocks until closed or ctx is done
	entered   chan string
	diagCalls []string
	pingCalls []string
}

func newFakeRouters(down ...string) *fakeRouters {
	f := &fakeRouters{down: make(map[string]bool)}
	for _, r := range down {
		f.down[r] = true
	}
	return f
}

func (f *fakeRouters) FetchDiagnostics(ctx context.Context, router domain.Device) domain.Diagnostics {
	f.mu.Lock()
	f.diagCalls = append(f.diagCalls, router.Name)
	hold, entered, down, panicOn := f.hold, f.entered, f.down[router.Name], f.panicOn
	f.mu.Unlock()

	if router.Name == panicOn {
		panic("scripted failure for " + router.Name)
	}
	if entered != nil {
		entered <- router.Name
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return domain.Diagnostics{}
		}
	}
	if down {
		return domain.Diagnostics{}
	}
	return domain.Diagnostics{"interfaces": "FastEthernet0/0 up"}
}

func (f *fakeRouters) PingFrom(_ context.Context, router domain.Device, addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingCalls = append(f.pingCalls, router.Name+"->"+addr)
	return !f.vmDown
}

func (f *fakeRouters) RunDiagnostics(ctx context.Context, router domain.Device) (domain.Diagnostics, error) {
	diag := f.FetchDiagnostics(ctx, router)
	if !diag.OK() {
		return nil, errors.New("connect failed")
	}
	return diag, nil
}

func (f *fakeRouters) CheckAccessible(_ context.Context, router domain.Device) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.down[router.Name]
}

func (f *fakeRouters) diagCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.diagCalls)
}

func (f *fakeRouters) pings() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pingCalls...)
}

// fakeHosts scripts local ping outcomes by address
type fakeHosts struct {
	mu          sync.Mutex
	unreachable map[string]bool
	calls       []string
}

func newFakeHosts(unreachable ...string) *fakeHosts {
	f := &fakeHosts{unreachable: make(map[string]bool)}
	for _, a := range unreachable {
		f.unreachable[a] = true
	}
	return f
}

func (f *fakeHosts) Reachable(_ context.Context, addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addr)
	return !f.unreachable[addr]
}

func (f *fakeHosts) probed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func labContext(t *testing.T, routers RouterProber, hosts HostProber) *MonitoringContext {
	t.Helper()
	topo, err := loader.Default()
	require.NoError(t, err)
	mc, err := NewMonitoringContext(topo, routers, hosts)
	require.NoError(t, err)
	return mc
}

func newLabMonitor(t *testing.T, routers *fakeRouters, hosts *fakeHosts) *HealthMonitor {
	t.Helper()
	return NewHealthMonitor(labContext(t, routers, hosts), NewEventBus(), nil, nil)
}

func statusOf(t *testing.T, m *HealthMonitor, a, b string) domain.LinkStatus {
	t.Helper()
	st, ok := m.Edge(a, b)
	require.True(t, ok, "edge %s-%s not modeled", a, b)
	return st.Status
}
