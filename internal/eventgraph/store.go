// Package eventgraph holds the append-only causal event graph and the
// read-only views derived from it: active sets and undirected projections.
package eventgraph

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownEvent is returned when an edge references an event id that the
// graph never allocated.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a node of the causal graph.
type Event struct {
	ID        int  `json:"id"`
	CreatedAt int  `json:"created_at"`
	Domain    *int `json:"domain"`
	Indeg     int  `json:"indeg"`
	Outdeg    int  `json:"outdeg"`
}

// Edge is a directed, timestamped link between two events.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Tick   int `json:"tick"`
}

// Graph is an append-only registry of events and edges.
//
// A Graph has a single writer. Queries are read-only and may run concurrently
// with each other, but never concurrently with NewEvent or AddEdge.
type Graph struct {
	events []Event
	edges  []Edge
	nextID int
}

// New creates an empty graph whose first event id is 0.
func New() *Graph {
	return &Graph{
		events: make([]Event, 0),
		edges:  make([]Edge, 0),
	}
}

// NewEvent allocates the next sequential event id.
func (g *Graph) NewEvent(tick int, domain *int) int {
	id := g.nextID
	g.nextID++

	var d *int
	if domain != nil {
		v := *domain
		d = &v
	}
	g.events = append(g.events, Event{ID: id, CreatedAt: tick, Domain: d})
	return id
}

// AddEdge appends the edge (u, v, tick) and updates both endpoint degrees.
// The graph is unchanged when either endpoint does not exist.
func (g *Graph) AddEdge(u, v, tick int) error {
	if !g.has(u) {
		return fmt.Errorf("add edge %d->%d: source: %w: %d", u, v, ErrUnknownEvent, u)
	}
	if !g.has(v) {
		return fmt.Errorf("add edge %d->%d: target: %w: %d", u, v, ErrUnknownEvent, v)
	}

	g.edges = append(g.edges, Edge{Source: u, Target: v, Tick: tick})
	g.events[u].Outdeg++
	g.events[v].Indeg++
	return nil
}

func (g *Graph) has(id int) bool {
	return id >= 0 && id < len(g.events)
}

// Event returns the event with the given id.
func (g *Graph) Event(id int) (Event, bool) {
	if !g.has(id) {
		return Event{}, false
	}
	return g.events[id], true
}

// Indeg returns the stored indegree of id, or 0 if id is unknown.
func (g *Graph) Indeg(id int) int {
	if !g.has(id) {
		return 0
	}
	return g.events[id].Indeg
}

// Outdeg returns the stored outdegree of id, or 0 if id is unknown.
func (g *Graph) Outdeg(id int) int {
	if !g.has(id) {
		return 0
	}
	return g.events[id].Outdeg
}

// Len returns the number of events.
func (g *Graph) Len() int { return len(g.events) }

// EdgeCount returns the number of stored edges, multi-edges included.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Events returns a copy of all events in id order.
func (g *Graph) Events() []Event { return slices.Clone(g.events) }

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }
