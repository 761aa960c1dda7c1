package visualization

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
	"github.com/google/go-cmp/cmp"
)

// junctionGraph has events 0,1 at tick 0 joining into 2 at tick 1, a
// parallel pair 2->3 and an old event 4 outside a short window.
func junctionGraph(t *testing.T) *eventgraph.Graph {
	t.Helper()
	g := eventgraph.New()
	for _, tick := range []int{0, 0, 1, 2, -5} {
		g.NewEvent(tick, nil)
	}
	for _, e := range [][2]int{{0, 2}, {1, 2}, {2, 3}, {2, 3}, {4, 0}} {
		if err := g.AddEdge(e[0], e[1], 1); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return g
}

func TestRenderDOT_Empty(t *testing.T) {
	dot := RenderDOT(eventgraph.New(), eventgraph.NewActiveSet(), nil)

	if !strings.Contains(dot, "digraph events") {
		t.Error("expected digraph header")
	}
	if !strings.HasSuffix(strings.TrimSpace(dot), "}") {
		t.Error("expected closing brace")
	}
	if strings.Contains(dot, "->") {
		t.Error("expected no edges")
	}
}

func TestRenderDOT_Roles(t *testing.T) {
	g := junctionGraph(t)
	active := g.VActive(2, 2, nil)

	dot := RenderDOT(g, active, []int{3})

	if !strings.Contains(dot, `e2 [label="2\nt=1", fillcolor="tomato"`) {
		t.Errorf("junction not highlighted:\n%s", dot)
	}
	if !strings.Contains(dot, `e3 [label="3\nt=2", fillcolor="goldenrod"`) {
		t.Errorf("frontier not highlighted:\n%s", dot)
	}
	if !strings.Contains(dot, `e0 [label="0\nt=0", fillcolor="steelblue"`) {
		t.Errorf("plain event not rendered:\n%s", dot)
	}
	if strings.Contains(dot, "e4") {
		t.Errorf("inactive event rendered:\n%s", dot)
	}
	if !strings.Contains(dot, `e2 -> e3 [label="x2", penwidth=2];`) {
		t.Errorf("parallel edges not merged:\n%s", dot)
	}
	if strings.Count(dot, "e2 -> e3") != 1 {
		t.Errorf("parallel edges rendered twice:\n%s", dot)
	}
}

func TestRenderJSON(t *testing.T) {
	g := junctionGraph(t)
	active := g.VActive(2, 2, []int{4})

	got := RenderJSON(g, active, []int{4})

	if got.NodeCount != 5 || got.EdgeCount != 4 {
		t.Errorf("counts = %d nodes, %d edges, want 5, 4", got.NodeCount, got.EdgeCount)
	}
	roles := map[int]string{}
	for _, n := range got.Nodes {
		roles[n.ID] = n.Role
	}
	want := map[int]string{0: RoleEvent, 1: RoleEvent, 2: RoleJunction, 3: RoleJunction, 4: RoleFrontier}
	if diff := cmp.Diff(want, roles); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectEdges(t *testing.T) {
	g := junctionGraph(t)
	edges := CollectEdges(g, g.VActive(2, 2, nil))

	want := []JSONEdge{
		{Source: 0, Target: 2, Tick: 1, Multiplicity: 1},
		{Source: 1, Target: 2, Tick: 1, Multiplicity: 1},
		{Source: 2, Target: 3, Tick: 1, Multiplicity: 2},
	}
	if diff := cmp.Diff(want, edges); diff != "" {
		t.Errorf("CollectEdges() mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_Formats(t *testing.T) {
	g := eventgraph.Ring(4)
	active := g.All()

	dot, err := Render(FormatDOT, g, active, nil)
	if err != nil {
		t.Fatalf("Render(dot): %v", err)
	}
	if !strings.HasPrefix(string(dot), "digraph") {
		t.Errorf("dot output = %q", dot)
	}

	data, err := Render(FormatJSON, g, active, nil)
	if err != nil {
		t.Fatalf("Render(json): %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["node_count"] != 4.0 || doc["edge_count"] != 4.0 {
		t.Errorf("counts = %v, %v", doc["node_count"], doc["edge_count"])
	}

	if _, err := Render("svg", g, active, nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestRenderJSON_EmptyEdgesNotNull(t *testing.T) {
	data, err := Render(FormatJSON, eventgraph.New(), eventgraph.NewActiveSet(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"edges": []`) {
		t.Errorf("edges should be an empty array: %s", data)
	}
}
