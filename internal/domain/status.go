package domain

import "time"

// LinkStatus represents whether traffic could currently flow across an edge
type LinkStatus string

const (
	LinkStatusUnknown LinkStatus = "unknown" // reset at run start, rendered neutral
	LinkStatusUp      LinkStatus = "up"
	LinkStatusDown    LinkStatus = "down"
)

// LinkStatusFromBool maps a probe outcome to a link status
func LinkStatusFromBool(ok bool) LinkStatus {
	if ok {
		return LinkStatusUp
	}
	return LinkStatusDown
}

// EdgeState is the current status of one edge
type EdgeState struct {
	Edge
	Status    LinkStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Diagnostics maps a diagnostic command name to its textual output.
// An empty mapping means the router could not be reached.
type Diagnostics map[string]string

// OK reports whether the diagnostics carry any information
func (d Diagnostics) OK() bool {
	return len(d) > 0
}
