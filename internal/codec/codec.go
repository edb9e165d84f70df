package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"linkwatch/internal/domain"
)

// Exporter interface for exporting edge snapshots to various formats
type Exporter interface {
	Export(snapshot *Snapshot, w io.Writer) error
	Format() string
	ContentType() string
}

// Importer reads snapshots written by the matching Exporter
type Importer interface {
	Parse(r io.Reader) (*Snapshot, error)
}

// EdgeRecord is one edge in a snapshot
type EdgeRecord struct {
	ID        domain.EdgeID     `json:"id" yaml:"id"`
	A         string            `json:"a" yaml:"a"`
	B         string            `json:"b" yaml:"b"`
	Subnet    string            `json:"subnet,omitempty" yaml:"subnet,omitempty"`
	Status    domain.LinkStatus `json:"status" yaml:"status"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Counts tallies edges by status
type Counts struct {
	Up      int `json:"up" yaml:"up"`
	Down    int `json:"down" yaml:"down"`
	Unknown int `json:"unknown" yaml:"unknown"`
}

// Snapshot is a point-in-time view of every edge status
type Snapshot struct {
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	RunID       string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Edges       []EdgeRecord `json:"edges" yaml:"edges"`
	Counts      Counts       `json:"counts" yaml:"counts"`
}

// NewSnapshot builds a snapshot from edge states, preserving their order
func NewSnapshot(states []domain.EdgeState, runID string, at time.Time) *Snapshot {
	s := &Snapshot{
		GeneratedAt: at,
		RunID:       runID,
		Edges:       make([]EdgeRecord, 0, len(states)),
	}
	for _, st := range states {
		rec := EdgeRecord{
			ID:     st.ID,
			A:      st.A,
			B:      st.B,
			Subnet: st.Subnet,
			Status: st.Status,
		}
		if !st.UpdatedAt.IsZero() {
			t := st.UpdatedAt
			rec.UpdatedAt = &t
		}
		s.Edges = append(s.Edges, rec)

		switch st.Status {
		case domain.LinkStatusUp:
			s.Counts.Up++
		case domain.LinkStatusDown:
			s.Counts.Down++
		default:
			s.Counts.Unknown++
		}
	}
	return s
}

// ForFormat returns the exporter for a format name. Empty means json.
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "", "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	case "table", "text":
		return NewTableCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ReadSnapshotFile parses a snapshot written with --format json or yaml.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
func ReadSnapshotFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var imp Importer = NewJSONCodec()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		imp = NewYAMLCodec()
	}
	return imp.Parse(f)
}

// Change is an edge whose status differs between two snapshots
type Change struct {
	ID   domain.EdgeID     `json:"id"`
	From domain.LinkStatus `json:"from"`
	To   domain.LinkStatus `json:"to"`
}

// Diff lists the edges of cur whose status differs from prev, in cur's
// order. Edges absent from prev count as unknown there.
func Diff(prev, cur *Snapshot) []Change {
	before := make(map[domain.EdgeID]domain.LinkStatus, len(prev.Edges))
	for _, e := range prev.Edges {
		before[e.ID] = e.Status
	}

	var changes []Change
	for _, e := range cur.Edges {
		from, ok := before[e.ID]
		if !ok {
			from = domain.LinkStatusUnknown
		}
		if from != e.Status {
			changes = append(changes, Change{ID: e.ID, From: from, To: e.Status})
		}
	}
	return changes
}
