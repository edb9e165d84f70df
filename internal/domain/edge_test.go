package domain

import (
	"testing"
)

func TestNewEdge(t *testing.T) {
	t.Run("creates edge with generated ID", func(t *testing.T) {
		edge := NewEdge("R1", "R2", "172.16.1.19/24")

		if edge.A != "R1" {
			t.Errorf("expected A 'R1', got %s", edge.A)
		}
		if edge.B != "R2" {
			t.Errorf("expected B 'R2', got %s", edge.B)
		}
		if edge.Subnet != "172.16.1.19/24" {
			t.Errorf("expected subnet to be kept, got %s", edge.Subnet)
		}
		if edge.ID == "" {
			t.Error("expected ID to be generated")
		}
	})
}

func TestNewEdgeID(t *testing.T) {
	t.Run("generates consistent ID", func(t *testing.T) {
		if NewEdgeID("R1", "R2") != NewEdgeID("R1", "R2") {
			t.Error("expected same endpoints to generate same ID")
		}
	})

	t.Run("normalizes endpoints for consistent ID", func(t *testing.T) {
		if NewEdgeID("R1", "Switch1") != NewEdgeID("Switch1", "R1") {
			t.Error("expected reversed endpoints to generate same ID")
		}
	})

	t.Run("different endpoints generate different IDs", func(t *testing.T) {
		if NewEdgeID("R1", "R2") == NewEdgeID("R1", "R3") {
			t.Error("expected different endpoints to generate different IDs")
		}
	})

	t.Run("round trips endpoints", func(t *testing.T) {
		a, b := NewEdgeID("R2", "PC12").Endpoints()
		if a != "PC12" || b != "R2" {
			t.Errorf("expected sorted endpoints PC12,R2, got %s,%s", a, b)
		}
	})
}

func TestEdgeHelpers(t *testing.T) {
	edge := NewEdge("R1", "Switch1", "")

	tests := []struct {
		name  string
		node  string
		touch bool
		other string
	}{
		{"first endpoint", "R1", true, "Switch1"},
		{"second endpoint", "Switch1", true, "R1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if edge.Touches(tt.node) != tt.touch {
				t.Errorf("Touches(%s) = %v, want %v", tt.node, !tt.touch, tt.touch)
			}
			if got := edge.Other(tt.node); got != tt.other {
				t.Errorf("Other(%s) = %s, want %s", tt.node, got, tt.other)
			}
		})
	}

	if edge.Touches("R2") {
		t.Error("expected edge not to touch R2")
	}
	if edge.String() != "R1-Switch1" {
		t.Errorf("expected R1-Switch1, got %s", edge.String())
	}
}

func TestLinkStatusFromBool(t *testing.T) {
	if LinkStatusFromBool(true) != LinkStatusUp {
		t.Error("expected true to map to up")
	}
	if LinkStatusFromBool(false) != LinkStatusDown {
		t.Error("expected false to map to down")
	}
}
