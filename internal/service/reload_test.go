package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkwatch/internal/domain"
)

func smallTopology() *domain.Topology {
	topo := domain.NewTopology()
	creds := &domain.Credentials{Username: "admin", Password: "admin"}
	topo.AddDevice(domain.Device{Name: "A", Kind: domain.DeviceKindRouter, Address: "10.0.0.1", Credentials: creds})
	topo.AddDevice(domain.Device{Name: "B", Kind: domain.DeviceKindRouter, Address: "10.0.0.2", Credentials: creds})
	topo.AddDevice(domain.Device{Name: "H1", Kind: domain.DeviceKindHost, Address: "10.0.1.11"})
	topo.AddEdge("A", "B", "10.0.0.0/30")
	topo.AddEdge("A", "H1", "")
	topo.Attach("A", "H1")
	return topo
}

type recordingSaver struct {
	mu      sync.Mutex
	sources []string
}

func (s *recordingSaver) SaveTopology(_ context.Context, _ *domain.Topology, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, source)
	return nil
}

func (s *recordingSaver) saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

func staticLoader(topo *domain.Topology, err error) TopologyLoader {
	return func(string) (*domain.Topology, error) { return topo, err }
}

func TestReloadSwapsTopology(t *testing.T) {
	routers, hosts := newFakeRouters(), newFakeHosts()
	m := newLabMonitor(t, routers, hosts)

	_, err := m.Run(context.Background())
	require.NoError(t, err)

	events := make(chan Event, 8)
	m.Events().Subscribe(events)

	saver := &recordingSaver{}
	r := NewReloader(m, routers, hosts, staticLoader(smallTopology(), nil), saver, nil, nil)
	require.NoError(t, r.Reload(context.Background(), "small.yaml"))

	edges := m.Edges()
	require.Len(t, edges, 2)
	for _, st := range edges {
		assert.Equal(t, domain.LinkStatusUnknown, st.Status)
	}
	assert.Empty(t, m.Status().Accessible)
	assert.Equal(t, []string{"small.yaml"}, saver.saved())

	_, ok := m.Context().Index.Device("R1")
	assert.False(t, ok)

	var reloaded *ReloadPayload
	for len(events) > 0 {
		ev := <-events
		if ev.Type == EventTopologyReloaded {
			p := ev.Payload.(ReloadPayload)
			reloaded = &p
		}
	}
	require.NotNil(t, reloaded)
	assert.Equal(t, ReloadPayload{Source: "small.yaml", Devices: 3, Edges: 2}, *reloaded)
	m.Events().Unsubscribe(events)

	// The next run uses the new topology
	summary, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, summary.Accessible)
	assert.Equal(t, domain.LinkStatusUp, statusOf(t, m, "A", "B"))
	assert.Equal(t, domain.LinkStatusUp, statusOf(t, m, "A", "H1"))
}

func TestReloadKeepsTopologyOnError(t *testing.T) {
	routers, hosts := newFakeRouters(), newFakeHosts()
	m := newLabMonitor(t, routers, hosts)
	saver := &recordingSaver{}

	r := NewReloader(m, routers, hosts, staticLoader(nil, errors.New("bad yaml")), saver, nil, nil)
	assert.Error(t, r.Reload(context.Background(), "broken.yaml"))

	invalid := domain.NewTopology()
	invalid.AddDevice(domain.Device{Name: "H1", Kind: domain.DeviceKindHost, Address: "10.0.1.11"})
	invalid.AddEdge("H1", "ghost", "")
	r = NewReloader(m, routers, hosts, staticLoader(invalid, nil), saver, nil, nil)
	err := r.Reload(context.Background(), "invalid.yaml")
	assert.ErrorIs(t, err, domain.ErrInvalidTopology)

	assert.Len(t, m.Edges(), 19)
	assert.Empty(t, saver.saved())
}

func TestReloadWaitsForActiveRun(t *testing.T) {
	routers, hosts := newFakeRouters(), newFakeHosts()
	routers.hold = make(chan struct{})
	m := newLabMonitor(t, routers, hosts)
	clock := clockwork.NewFakeClock()

	_, err := m.Start(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, m.Reload(labContext(t, routers, hosts), "direct"), ErrRunInProgress)

	r := NewReloader(m, routers, hosts, staticLoader(smallTopology(), nil), nil, clock, nil)
	done := make(chan error, 1)
	go func() { done <- r.Reload(context.Background(), "small.yaml") }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	close(routers.hold)
	m.Wait()
	assert.Len(t, m.Edges(), 19)

	clock.Advance(defaultReloadRetry)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload did not complete after the run finished")
	}
	assert.Len(t, m.Edges(), 2)
}

func TestReloadGivesUpWhenContextDone(t *testing.T) {
	routers, hosts := newFakeRouters(), newFakeHosts()
	routers.hold = make(chan struct{})
	m := newLabMonitor(t, routers, hosts)

	_, err := m.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewReloader(m, routers, hosts, staticLoader(smallTopology(), nil), nil, clockwork.NewFakeClock(), nil)
	assert.ErrorIs(t, r.Reload(ctx, "small.yaml"), context.Canceled)

	close(routers.hold)
	m.Wait()
	assert.Len(t, m.Edges(), 19)
}
