// Package domain defines the core types for the linkwatch topology health monitor.
//
// This package contains the entities that describe a fixed lab network and the
// status values the monitor derives for it.
//
// # Core Types
//
// Device represents a router, switch, host or virtual machine. Routers carry
// credentials and a session transport (telnet or ssh).
//
// Edge represents a modeled link between two devices. Edges are unordered:
// NewEdgeID yields the same ID regardless of endpoint order.
//
// Topology holds devices in configuration order together with edges,
// attachments (which devices hang off each router or switch) and switch
// uplinks.
//
// # Adjacency
//
// AdjacencyIndex answers the three questions the monitor asks of a topology:
// which devices are attached to a router, which switch a device sits behind,
// and which accessible router governs a host.
//
// # Status
//
// LinkStatus is unknown, up or down. EdgeState pairs an edge with its status
// and the time it was last set.
package domain
