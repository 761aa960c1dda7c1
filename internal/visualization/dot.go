// Package visualization renders the active subgraph of an event graph in
// various output formats.
package visualization

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// Node roles, used for DOT colors and JSON "role".
const (
	RoleFrontier = "frontier"
	RoleJunction = "junction"
	RoleEvent    = "event"
)

// roleColors maps node roles to DOT colors.
var roleColors = map[string]string{
	RoleFrontier: "goldenrod",
	RoleJunction: "tomato",
	RoleEvent:    "steelblue",
}

// JSONNode is one active event in RenderJSON output.
type JSONNode struct {
	ID        int    `json:"id"`
	CreatedAt int    `json:"created_at"`
	Domain    *int   `json:"domain,omitempty"`
	Indeg     int    `json:"indeg"`
	Outdeg    int    `json:"outdeg"`
	Role      string `json:"role"`
}

// JSONEdge is a directed edge between two active events. Parallel edges are
// merged; Multiplicity counts them.
type JSONEdge struct {
	Source       int `json:"source"`
	Target       int `json:"target"`
	Tick         int `json:"tick"`
	Multiplicity int `json:"multiplicity"`
}

// JSONGraph is the RenderJSON document.
type JSONGraph struct {
	Nodes     []JSONNode `json:"nodes"`
	Edges     []JSONEdge `json:"edges"`
	NodeCount int        `json:"node_count"`
	EdgeCount int        `json:"edge_count"`
}

// role classifies an event: frontier ids first, then events with more than
// one cause.
func role(ev eventgraph.Event, frontiers map[int]bool) string {
	switch {
	case frontiers[ev.ID]:
		return RoleFrontier
	case ev.Indeg > 1:
		return RoleJunction
	default:
		return RoleEvent
	}
}

// RenderDOT produces a Graphviz DOT representation of the active subgraph.
// Frontier events are highlighted, junctions colored by indegree.
func RenderDOT(g *eventgraph.Graph, active eventgraph.ActiveSet, frontiers []int) string {
	fset := toSet(frontiers)

	var b strings.Builder
	b.WriteString("digraph events {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, id := range active.IDs() {
		ev, ok := g.Event(id)
		if !ok {
			continue
		}
		r := role(ev, fset)
		label := fmt.Sprintf("%d\\nt=%d", ev.ID, ev.CreatedAt)
		b.WriteString(fmt.Sprintf("  e%d [label=\"%s\", fillcolor=%q, tooltip=\"indeg=%d outdeg=%d\"];\n",
			ev.ID, label, roleColors[r], ev.Indeg, ev.Outdeg))
	}
	b.WriteString("\n")

	for _, e := range CollectEdges(g, active) {
		if e.Multiplicity > 1 {
			b.WriteString(fmt.Sprintf("  e%d -> e%d [label=\"x%d\", penwidth=%d];\n",
				e.Source, e.Target, e.Multiplicity, e.Multiplicity))
			continue
		}
		b.WriteString(fmt.Sprintf("  e%d -> e%d;\n", e.Source, e.Target))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON graph representation of the active subgraph.
func RenderJSON(g *eventgraph.Graph, active eventgraph.ActiveSet, frontiers []int) JSONGraph {
	fset := toSet(frontiers)

	nodes := make([]JSONNode, 0, active.Len())
	for _, id := range active.IDs() {
		ev, ok := g.Event(id)
		if !ok {
			continue
		}
		nodes = append(nodes, JSONNode{
			ID:        ev.ID,
			CreatedAt: ev.CreatedAt,
			Domain:    ev.Domain,
			Indeg:     ev.Indeg,
			Outdeg:    ev.Outdeg,
			Role:      role(ev, fset),
		})
	}

	edges := CollectEdges(g, active)
	if edges == nil {
		edges = []JSONEdge{}
	}
	return JSONGraph{
		Nodes:     nodes,
		Edges:     edges,
		NodeCount: len(nodes),
		EdgeCount: len(edges),
	}
}

// Render renders in the requested format.
func Render(format Format, g *eventgraph.Graph, active eventgraph.ActiveSet, frontiers []int) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(RenderDOT(g, active, frontiers)), nil
	case FormatJSON:
		data, err := json.MarshalIndent(RenderJSON(g, active, frontiers), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal graph: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (valid: dot, json)", format)
	}
}

// CollectEdges gathers the edges with both endpoints active, merging parallel
// edges in first-insertion order. Tick is that of the first edge.
func CollectEdges(g *eventgraph.Graph, active eventgraph.ActiveSet) []JSONEdge {
	index := make(map[[2]int]int)
	var result []JSONEdge
	for _, e := range g.Edges() {
		if !active.Contains(e.Source) || !active.Contains(e.Target) {
			continue
		}
		key := [2]int{e.Source, e.Target}
		if i, ok := index[key]; ok {
			result[i].Multiplicity++
			continue
		}
		index[key] = len(result)
		result = append(result, JSONEdge{Source: e.Source, Target: e.Target, Tick: e.Tick, Multiplicity: 1})
	}
	return result
}

func toSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
