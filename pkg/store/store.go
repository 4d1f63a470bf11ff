// Package store archives evaluation runs.
//
// A run records the inputs and output of one accumulation: the network's
// content hash, the precipitation depth, the retention vector, and the
// computed outflow. Archiving runs makes scenario studies reproducible -
// a retention variant evaluated months ago can be retrieved by ID instead
// of re-deriving its inputs.
//
// Two backends are provided:
//   - memory: in-process storage for development and testing
//   - mongo: MongoDB-backed storage for serve deployments
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Run is one archived evaluation.
type Run struct {
	ID          string    `json:"id" bson:"_id"`
	NetworkHash string    `json:"network_hash" bson:"network_hash"`
	Outlet      string    `json:"outlet" bson:"outlet"`
	Depth       float64   `json:"depth" bson:"depth"`                           // mm
	Retention   []float64 `json:"retention,omitempty" bson:"retention,omitempty"` // m³ per node
	Outflow     []float64 `json:"outflow" bson:"outflow"`                       // m³ per node
	Nodes       []string  `json:"nodes" bson:"nodes"`                           // enumeration the vectors align to
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// NewRun assembles a run with a fresh UUID and the current time.
func NewRun(networkHash, outlet string, depth float64, nodes []string, retention, outflow []float64) *Run {
	return &Run{
		ID:          uuid.New().String(),
		NetworkHash: networkHash,
		Outlet:      outlet,
		Depth:       depth,
		Retention:   retention,
		Outflow:     outflow,
		Nodes:       nodes,
		CreatedAt:   time.Now().UTC(),
	}
}

// Store is the interface for run archive backends.
type Store interface {
	// Save persists a run.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by ID. Returns ErrCodeRunNotFound if absent.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns the most recent runs, newest first, up to limit.
	List(ctx context.Context, limit int) ([]*Run, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}

// DefaultListLimit bounds List when callers pass limit <= 0.
const DefaultListLimit = 50
