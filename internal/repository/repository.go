package repository

import (
	"context"
	"errors"
	"time"

	"linkwatch/internal/domain"
)

// ErrNoTopology is returned when no topology has been saved yet
var ErrNoTopology = errors.New("no topology stored")

// TopologyInfo describes the stored topology
type TopologyInfo struct {
	Source  string    `json:"source"`
	SavedAt time.Time `json:"saved_at"`
	Devices int       `json:"devices"`
	Edges   int       `json:"edges"`
}

// TopologyStore persists the configured topology between restarts
type TopologyStore interface {
	// SaveTopology replaces the stored topology. source records where it was loaded from.
	SaveTopology(ctx context.Context, topo *domain.Topology, source string) error

	// LoadTopology returns the stored topology or ErrNoTopology
	LoadTopology(ctx context.Context) (*domain.Topology, error)

	// Info describes the stored topology or returns ErrNoTopology
	Info(ctx context.Context) (*TopologyInfo, error)

	// Close releases resources
	Close() error
}
