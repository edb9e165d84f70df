package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"linkwatch/internal/domain"
)

func sampleStates() []domain.EdgeState {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domain.EdgeState{
		{Edge: domain.NewEdge("R1", "R2", "172.16.1.0/24"), Status: domain.LinkStatusUp, UpdatedAt: at},
		{Edge: domain.NewEdge("R2", "PC12", ""), Status: domain.LinkStatusDown, UpdatedAt: at},
		{Edge: domain.NewEdge("R1", "Switch1", ""), Status: domain.LinkStatusUnknown},
	}
}

func TestNewSnapshot(t *testing.T) {
	s := NewSnapshot(sampleStates(), "run-1", time.Unix(0, 0))

	if len(s.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(s.Edges))
	}
	if s.Counts != (Counts{Up: 1, Down: 1, Unknown: 1}) {
		t.Errorf("unexpected counts %+v", s.Counts)
	}
	if s.Edges[0].Subnet != "172.16.1.0/24" {
		t.Errorf("subnet not carried: %+v", s.Edges[0])
	}
	if s.Edges[2].UpdatedAt != nil {
		t.Error("zero timestamp should be omitted")
	}
}

func TestJSONExport(t *testing.T) {
	c := NewJSONCodec()
	var buf bytes.Buffer
	if err := c.Export(NewSnapshot(sampleStates(), "run-1", time.Unix(0, 0).UTC()), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"run_id": "run-1"`, `"status": "up"`, `"id": "R1~R2"`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}

	parsed, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Counts.Up != 1 || len(parsed.Edges) != 3 {
		t.Errorf("unexpected parsed snapshot %+v", parsed)
	}
}

func TestYAMLExport(t *testing.T) {
	c := NewYAMLCodec()
	var buf bytes.Buffer
	if err := c.Export(NewSnapshot(sampleStates(), "", time.Unix(0, 0).UTC()), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "run_id") {
		t.Error("empty run id should be omitted")
	}
	if !strings.Contains(out, "status: down") {
		t.Errorf("missing down status in %s", out)
	}

	parsed, err := c.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parsed.Edges[1].B != "R2" && parsed.Edges[1].A != "R2" {
		t.Errorf("unexpected edge %+v", parsed.Edges[1])
	}
}

func TestTableExport(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTableCodec().Export(NewSnapshot(sampleStates(), "", time.Now()), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "172.16.1.0/24") {
		t.Errorf("missing subnet in table:\n%s", out)
	}
	if !strings.Contains(out, "Summary: 1 up, 1 down, 1 unknown (Total: 3 edges)") {
		t.Errorf("missing summary in table:\n%s", out)
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "json", false},
		{"json", "json", false},
		{"yml", "yaml", false},
		{"text", "table", false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		c, err := ForFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ForFormat(%q) error = %v", tt.in, err)
		}
		if err == nil && c.Format() != tt.want {
			t.Errorf("ForFormat(%q) = %s, want %s", tt.in, c.Format(), tt.want)
		}
	}
}

func TestReadSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	snap := NewSnapshot(sampleStates(), "run-7", time.Unix(0, 0).UTC())

	for _, name := range []string{"last.json", "last.yaml", "last.yml"} {
		t.Run(name, func(t *testing.T) {
			exp, err := ForFormat(strings.TrimPrefix(filepath.Ext(name), "."))
			if err != nil {
				t.Fatal(err)
			}
			var buf bytes.Buffer
			if err := exp.Export(snap, &buf); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
				t.Fatal(err)
			}

			got, err := ReadSnapshotFile(path)
			if err != nil {
				t.Fatalf("ReadSnapshotFile() error = %v", err)
			}
			if got.RunID != "run-7" || len(got.Edges) != 3 || got.Counts != snap.Counts {
				t.Errorf("unexpected snapshot %+v", got)
			}
		})
	}

	if _, err := ReadSnapshotFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDiff(t *testing.T) {
	prev := NewSnapshot(sampleStates(), "run-1", time.Unix(0, 0))

	states := sampleStates()
	states[0].Status = domain.LinkStatusDown
	states = append(states, domain.EdgeState{Edge: domain.NewEdge("R4", "PC1", ""), Status: domain.LinkStatusUp})
	cur := NewSnapshot(states, "run-2", time.Unix(60, 0))

	got := Diff(prev, cur)
	want := []Change{
		{ID: domain.NewEdgeID("R1", "R2"), From: domain.LinkStatusUp, To: domain.LinkStatusDown},
		{ID: domain.NewEdgeID("R4", "PC1"), From: domain.LinkStatusUnknown, To: domain.LinkStatusUp},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d changes, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("change %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if changes := Diff(cur, cur); len(changes) != 0 {
		t.Errorf("identical snapshots should not differ: %+v", changes)
	}
}
