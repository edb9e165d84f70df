package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidTopology is wrapped by every topology validation failure
var ErrInvalidTopology = errors.New("invalid topology")

// Topology is the fixed description of the monitored network
type Topology struct {
	// Devices in configuration order; phase ordering follows this slice
	Devices []Device `json:"devices"`
	Edges   []Edge   `json:"edges"`

	// Attachments maps a router or switch to its directly attached devices
	Attachments map[string][]string `json:"attachments"`

	// Uplinks maps a switch to the router it hangs off
	Uplinks map[string]string `json:"uplinks"`
}

// NewTopology creates an empty topology with initialized collections
func NewTopology() *Topology {
	return &Topology{
		Devices:     make([]Device, 0),
		Edges:       make([]Edge, 0),
		Attachments: make(map[string][]string),
		Uplinks:     make(map[string]string),
	}
}

// AddDevice appends a device
func (t *Topology) AddDevice(d Device) {
	t.Devices = append(t.Devices, d)
}

// AddEdge appends an edge between a and b
func (t *Topology) AddEdge(a, b, subnet string) {
	t.Edges = append(t.Edges, NewEdge(a, b, subnet))
}

// Attach records children as directly attached to parent
func (t *Topology) Attach(parent string, children ...string) {
	if t.Attachments == nil {
		t.Attachments = make(map[string][]string)
	}
	t.Attachments[parent] = append(t.Attachments[parent], children...)
}

// SetUplink records the router a switch is associated with
func (t *Topology) SetUplink(sw, router string) {
	if t.Uplinks == nil {
		t.Uplinks = make(map[string]string)
	}
	t.Uplinks[sw] = router
}

// Device looks up a device by name
func (t *Topology) Device(name string) (Device, bool) {
	for _, d := range t.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// DevicesOfKind returns devices of the given kinds in configuration order
func (t *Topology) DevicesOfKind(kinds ...DeviceKind) []Device {
	var out []Device
	for _, d := range t.Devices {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Routers returns all routers in configuration order
func (t *Topology) Routers() []Device {
	return t.DevicesOfKind(DeviceKindRouter)
}

// Endpoints returns all hosts and VMs in configuration order
func (t *Topology) Endpoints() []Device {
	return t.DevicesOfKind(DeviceKindHost, DeviceKindVM)
}

// Validate checks referential integrity of the topology
func (t *Topology) Validate() error {
	if len(t.Devices) == 0 {
		return fmt.Errorf("%w: no devices", ErrInvalidTopology)
	}

	kinds := make(map[string]DeviceKind, len(t.Devices))
	for _, d := range t.Devices {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTopology, err)
		}
		if _, dup := kinds[d.Name]; dup {
			return fmt.Errorf("%w: duplicate device %s", ErrInvalidTopology, d.Name)
		}
		kinds[d.Name] = d.Kind
	}

	seen := make(map[EdgeID]bool, len(t.Edges))
	for _, e := range t.Edges {
		if _, ok := kinds[e.A]; !ok {
			return fmt.Errorf("%w: edge %s references unknown device %s", ErrInvalidTopology, e, e.A)
		}
		if _, ok := kinds[e.B]; !ok {
			return fmt.Errorf("%w: edge %s references unknown device %s", ErrInvalidTopology, e, e.B)
		}
		if e.A == e.B {
			return fmt.Errorf("%w: edge %s is a self-loop", ErrInvalidTopology, e)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate edge %s", ErrInvalidTopology, e)
		}
		seen[e.ID] = true
	}

	for parent, children := range t.Attachments {
		kind, ok := kinds[parent]
		if !ok {
			return fmt.Errorf("%w: attachment parent %s is not a device", ErrInvalidTopology, parent)
		}
		if kind != DeviceKindRouter && kind != DeviceKindSwitch {
			return fmt.Errorf("%w: attachment parent %s must be a router or switch", ErrInvalidTopology, parent)
		}
		for _, c := range children {
			if _, ok := kinds[c]; !ok {
				return fmt.Errorf("%w: %s attaches unknown device %s", ErrInvalidTopology, parent, c)
			}
		}
	}

	for sw, router := range t.Uplinks {
		if kinds[sw] != DeviceKindSwitch {
			return fmt.Errorf("%w: uplink source %s is not a switch", ErrInvalidTopology, sw)
		}
		if kinds[router] != DeviceKindRouter {
			return fmt.Errorf("%w: uplink target %s is not a router", ErrInvalidTopology, router)
		}
	}

	return nil
}

// Membership answers whether a router is in the current accessible set
type Membership interface {
	Has(router string) bool
}

// AdjacencyIndex answers attachment queries over a validated topology
type AdjacencyIndex struct {
	devices  map[string]Device
	edges    map[EdgeID]Edge
	routers  []string            // configuration order
	direct   map[string][]string // router/switch -> attached devices
	switchOf map[string]string   // device -> switch it is wired to
	uplinks  map[string]string   // switch -> router
}

// NewAdjacencyIndex builds the index. The topology must already be valid.
func NewAdjacencyIndex(t *Topology) *AdjacencyIndex {
	idx := &AdjacencyIndex{
		devices:  make(map[string]Device, len(t.Devices)),
		edges:    make(map[EdgeID]Edge, len(t.Edges)),
		direct:   make(map[string][]string, len(t.Attachments)),
		switchOf: make(map[string]string),
		uplinks:  make(map[string]string, len(t.Uplinks)),
	}

	for _, d := range t.Devices {
		idx.devices[d.Name] = d
		if d.IsRouter() {
			idx.routers = append(idx.routers, d.Name)
		}
	}
	for _, e := range t.Edges {
		idx.edges[e.ID] = e
	}

	// Walk parents in device order so lookups are deterministic
	for _, d := range t.Devices {
		children, ok := t.Attachments[d.Name]
		if !ok {
			continue
		}
		idx.direct[d.Name] = append([]string(nil), children...)
		if d.Kind != DeviceKindSwitch {
			continue
		}
		for _, c := range children {
			if _, taken := idx.switchOf[c]; !taken {
				idx.switchOf[c] = d.Name
			}
		}
	}

	for sw, r := range t.Uplinks {
		idx.uplinks[sw] = r
	}
	// A switch without an explicit uplink hangs off the first router attaching it
	for _, r := range idx.routers {
		for _, c := range idx.direct[r] {
			if idx.devices[c].Kind != DeviceKindSwitch {
				continue
			}
			if _, ok := idx.uplinks[c]; !ok {
				idx.uplinks[c] = r
			}
		}
	}

	return idx
}

// Device looks up a device by name
func (idx *AdjacencyIndex) Device(name string) (Device, bool) {
	d, ok := idx.devices[name]
	return d, ok
}

// Edge returns the edge between a and b, if one is modeled
func (idx *AdjacencyIndex) Edge(a, b string) (Edge, bool) {
	e, ok := idx.edges[NewEdgeID(a, b)]
	return e, ok
}

// AttachedTo returns devices wired to the router directly or through one
// switch hop, direct attachments first.
func (idx *AdjacencyIndex) AttachedTo(router string) []Device {
	var out []Device
	seen := make(map[string]bool)
	add := func(name string) {
		if seen[name] {
			return
		}
		if d, ok := idx.devices[name]; ok {
			seen[name] = true
			out = append(out, d)
		}
	}

	for _, name := range idx.direct[router] {
		add(name)
	}
	for _, name := range idx.direct[router] {
		if idx.devices[name].Kind != DeviceKindSwitch {
			continue
		}
		for _, child := range idx.direct[name] {
			add(child)
		}
	}
	return out
}

// SwitchOf returns the switch a device is wired to
func (idx *AdjacencyIndex) SwitchOf(device string) (string, bool) {
	sw, ok := idx.switchOf[device]
	return sw, ok
}

// UplinkOf returns the router a switch is associated with
func (idx *AdjacencyIndex) UplinkOf(sw string) (string, bool) {
	r, ok := idx.uplinks[sw]
	return r, ok
}

// GoverningRouter resolves the nearest accessible router in the device's
// attachment chain. Direct attachment is checked before the switch uplink.
func (idx *AdjacencyIndex) GoverningRouter(device string, accessible Membership) (string, bool) {
	for _, r := range idx.routers {
		if !accessible.Has(r) {
			continue
		}
		for _, c := range idx.direct[r] {
			if c == device {
				return r, true
			}
		}
	}

	sw, ok := idx.switchOf[device]
	if !ok {
		return "", false
	}
	r, ok := idx.uplinks[sw]
	if !ok || !accessible.Has(r) {
		return "", false
	}
	return r, true
}
