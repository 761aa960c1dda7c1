// Package store defines the RunStore interface for persisting grown event
// graphs together with the run parameters that produced them.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

// ErrRunNotFound is returned when a run id has no stored graph.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a stored run.
type RunInfo struct {
	RunID        string    `json:"run_id"`
	ExperimentID string    `json:"experiment_id"`
	Variant      string    `json:"variant"`
	Threads      int       `json:"N"`
	Coupling     float64   `json:"n"`
	Seed         uint64    `json:"seed"`
	Window       int       `json:"W_coh"`
	FinalTick    int       `json:"final_tick"`
	Events       int       `json:"events"`
	Edges        int       `json:"edges"`
	CreatedAt    time.Time `json:"created_at"`
}

// StoredRun is a run loaded back from a store.
type StoredRun struct {
	Info      RunInfo
	Graph     *eventgraph.Graph
	Frontiers []int
}

// Active returns the active set at the stored final tick with the stored
// coherence window.
func (r *StoredRun) Active() eventgraph.ActiveSet {
	return r.Graph.VActive(r.Info.FinalTick, r.Info.Window, r.Frontiers)
}

// RunStore persists event graphs by run id.
type RunStore interface {
	// SaveRun stores g under info.RunID, replacing any earlier run with the
	// same id. Events and Edges in info are filled from g.
	SaveRun(ctx context.Context, info RunInfo, g *eventgraph.Graph, frontiers []int) error

	// LoadRun rebuilds a stored graph. Returns ErrRunNotFound for unknown ids.
	LoadRun(ctx context.Context, runID string) (*StoredRun, error)

	// ListRuns returns stored runs ordered by run id.
	ListRuns(ctx context.Context) ([]RunInfo, error)

	// DeleteRun removes a run. Returns ErrRunNotFound for unknown ids.
	DeleteRun(ctx context.Context, runID string) error

	Close() error
}

// Rebuild replays events and edges through the graph API so stored degrees
// are recomputed rather than trusted. Events must be in id order.
func Rebuild(events []eventgraph.Event, edges []eventgraph.Edge) (*eventgraph.Graph, error) {
	g := eventgraph.New()
	for _, ev := range events {
		if id := g.NewEvent(ev.CreatedAt, ev.Domain); id != ev.ID {
			return nil, fmt.Errorf("event ids not contiguous: stored %d, assigned %d", ev.ID, id)
		}
	}
	for i, e := range edges {
		if err := g.AddEdge(e.Source, e.Target, e.Tick); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return g, nil
}
