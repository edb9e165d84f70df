package domain

import (
	"fmt"
	"strings"
)

// EdgeID identifies an unordered pair of devices
type EdgeID string

// edgeSeparator never appears in device names (Validate enforces this)
const edgeSeparator = "~"

// NewEdgeID creates a deterministic ID for the edge between a and b.
// Endpoint order does not matter.
func NewEdgeID(a, b string) EdgeID {
	if a > b {
		a, b = b, a
	}
	return EdgeID(a + edgeSeparator + b)
}

// Endpoints splits the ID back into its two device names
func (id EdgeID) Endpoints() (string, string) {
	a, b, _ := strings.Cut(string(id), edgeSeparator)
	return a, b
}

// Edge represents a modeled link between two devices
type Edge struct {
	ID     EdgeID `json:"id"`
	A      string `json:"a"`
	B      string `json:"b"`
	Subnet string `json:"subnet,omitempty"` // descriptive only
}

// NewEdge creates a new edge
func NewEdge(a, b, subnet string) Edge {
	return Edge{
		ID:     NewEdgeID(a, b),
		A:      a,
		B:      b,
		Subnet: subnet,
	}
}

// Touches reports whether the edge has name as one of its endpoints
func (e Edge) Touches(name string) bool {
	return e.A == name || e.B == name
}

// Other returns the endpoint opposite name
func (e Edge) Other(name string) string {
	if e.A == name {
		return e.B
	}
	return e.A
}

// String renders the edge the way operators name links
func (e Edge) String() string {
	return fmt.Sprintf("%s-%s", e.A, e.B)
}
