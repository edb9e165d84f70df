package service

import (
	"context"
	"fmt"

	"linkwatch/internal/domain"
)

// RouterProber runs authenticated probes against routers.
// Failures are reported as empty diagnostics or false, never as errors.
type RouterProber interface {
	FetchDiagnostics(ctx context.Context, router domain.Device) domain.Diagnostics
	PingFrom(ctx context.Context, router domain.Device, addr string) bool
}

// HostProber checks reachability of an address from this machine
type HostProber interface {
	Reachable(ctx context.Context, addr string) bool
}

// MonitoringContext is the fixed configuration a HealthMonitor operates on.
// It is built once at startup and shared read-only between runs.
type MonitoringContext struct {
	Topology *domain.Topology
	Index    *domain.AdjacencyIndex
	Routers  RouterProber
	Hosts    HostProber
}

// NewMonitoringContext validates the topology and builds its adjacency index
func NewMonitoringContext(topo *domain.Topology, routers RouterProber, hosts HostProber) (*MonitoringContext, error) {
	if topo == nil {
		return nil, fmt.Errorf("%w: nil topology", domain.ErrInvalidTopology)
	}
	if err := topo.Validate(); err != nil {
		return nil, err
	}
	if routers == nil || hosts == nil {
		return nil, fmt.Errorf("monitoring context requires router and host probers")
	}
	return &MonitoringContext{
		Topology: topo,
		Index:    domain.NewAdjacencyIndex(topo),
		Routers:  routers,
		Hosts:    hosts,
	}, nil
}

// routerLinks returns router-router edges in configuration order
func (mc *MonitoringContext) routerLinks() []domain.Edge {
	var links []domain.Edge
	for _, e := range mc.Topology.Edges {
		a, okA := mc.Index.Device(e.A)
		b, okB := mc.Index.Device(e.B)
		if okA && okB && a.IsRouter() && b.IsRouter() {
			links = append(links, e)
		}
	}
	return links
}
