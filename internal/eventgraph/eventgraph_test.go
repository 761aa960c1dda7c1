package eventgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fiveCycle builds events 0..4 at tick 0 joined by a directed 5-cycle.
func fiveCycle(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for i := 0; i < 5; i++ {
		g.NewEvent(0, nil)
	}
	for i := 0; i < 5; i++ {
		if err := g.AddEdge(i, (i+1)%5, 0); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", i, (i+1)%5, err)
		}
	}
	return g
}

func TestNewEvent_SequentialIDs(t *testing.T) {
	g := New()
	domain := 3
	for want := 0; want < 4; want++ {
		if got := g.NewEvent(want*10, &domain); got != want {
			t.Errorf("NewEvent() = %d, want %d", got, want)
		}
	}

	ev, ok := g.Event(2)
	if !ok {
		t.Fatal("Event(2) not found")
	}
	if ev.CreatedAt != 20 {
		t.Errorf("CreatedAt = %d, want 20", ev.CreatedAt)
	}
	if ev.Domain == nil || *ev.Domain != 3 {
		t.Errorf("Domain = %v, want 3", ev.Domain)
	}
	if ev.Indeg != 0 || ev.Outdeg != 0 {
		t.Errorf("degrees = (%d, %d), want (0, 0)", ev.Indeg, ev.Outdeg)
	}

	// The stored domain is a copy.
	domain = 9
	ev, _ = g.Event(2)
	if *ev.Domain != 3 {
		t.Errorf("Domain changed through caller pointer: %d", *ev.Domain)
	}
}

func TestNewEvent_IndependentGraphs(t *testing.T) {
	a, b := New(), New()
	a.NewEvent(0, nil)
	a.NewEvent(0, nil)
	if got := b.NewEvent(0, nil); got != 0 {
		t.Errorf("second graph first id = %d, want 0", got)
	}
}

func TestAddEdge_Degrees(t *testing.T) {
	g := New()
	for i := 0; i < 3; i++ {
		g.NewEvent(0, nil)
	}
	edges := [][2]int{{0, 1}, {0, 1}, {2, 1}, {1, 1}}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1], 5); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e[0], e[1], err)
		}
	}

	want := map[int][2]int{0: {0, 2}, 1: {4, 1}, 2: {0, 1}}
	for id, deg := range want {
		if g.Indeg(id) != deg[0] || g.Outdeg(id) != deg[1] {
			t.Errorf("node %d degrees = (%d, %d), want (%d, %d)",
				id, g.Indeg(id), g.Outdeg(id), deg[0], deg[1])
		}
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}
}

func TestAddEdge_DegreesMatchEdgeList(t *testing.T) {
	g := Lattice2D(4, 3)
	in := make(map[int]int)
	out := make(map[int]int)
	for _, e := range g.Edges() {
		out[e.Source]++
		in[e.Target]++
	}
	for _, ev := range g.Events() {
		if ev.Indeg != in[ev.ID] || ev.Outdeg != out[ev.ID] {
			t.Errorf("node %d degrees = (%d, %d), edge list says (%d, %d)",
				ev.ID, ev.Indeg, ev.Outdeg, in[ev.ID], out[ev.ID])
		}
	}
}

func TestAddEdge_UnknownEvent(t *testing.T) {
	g := New()
	g.NewEvent(0, nil)

	tests := []struct {
		name string
		u, v int
	}{
		{"unknown target", 0, 1},
		{"unknown source", 7, 0},
		{"negative id", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddEdge(tt.u, tt.v, 0)
			if !errors.Is(err, ErrUnknownEvent) {
				t.Fatalf("AddEdge() error = %v, want ErrUnknownEvent", err)
			}
		})
	}

	if g.EdgeCount() != 0 || g.Indeg(0) != 0 || g.Outdeg(0) != 0 {
		t.Error("failed AddEdge mutated the graph")
	}
}

func TestVActive(t *testing.T) {
	g := New()
	for tick := 0; tick < 10; tick++ {
		g.NewEvent(tick, nil)
	}

	tests := []struct {
		name      string
		t, window int
		frontiers []int
		want      []int
	}{
		{"window", 9, 2, nil, []int{7, 8, 9}},
		{"frontiers pinned", 9, 2, []int{1, 8, 3}, []int{7, 8, 9, 1, 3}},
		{"negative cutoff", 3, 10, nil, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{"zero window", 5, 0, nil, []int{5, 6, 7, 8, 9}},
		{"nothing recent", 50, 1, []int{2}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.VActive(tt.t, tt.window, tt.frontiers)
			if diff := cmp.Diff(tt.want, got.IDs()); diff != "" {
				t.Errorf("VActive() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewActiveSet_Dedup(t *testing.T) {
	a := NewActiveSet(3, 1, 3, 2, 1)
	if diff := cmp.Diff([]int{3, 1, 2}, a.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
	if !a.Contains(2) || a.Contains(4) {
		t.Error("Contains() gave wrong membership")
	}
}

func TestAdjacency_Symmetric(t *testing.T) {
	g := fiveCycle(t)
	adj := g.Adjacency(g.All())

	want := map[int][]int{
		0: {1, 4},
		1: {0, 2},
		2: {1, 3},
		3: {2, 4},
		4: {0, 3},
	}
	got := make(map[int][]int)
	for _, id := range adj.Nodes() {
		got[id] = adj.Neighbors(id)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Adjacency mismatch (-want +got):\n%s", diff)
	}

	for _, u := range adj.Nodes() {
		for _, v := range adj.Neighbors(u) {
			if !adj.HasEdge(v, u) {
				t.Errorf("edge %d-%d not symmetric", u, v)
			}
		}
	}
}

func TestAdjacency_DropsOutsideEdges(t *testing.T) {
	g := fiveCycle(t)
	adj := g.Adjacency(NewActiveSet(0, 1, 2))

	if adj.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", adj.Len())
	}
	if diff := cmp.Diff([]int{1}, adj.Neighbors(0)); diff != "" {
		t.Errorf("Neighbors(0) mismatch (-want +got):\n%s", diff)
	}
	if adj.HasEdge(0, 4) {
		t.Error("edge to inactive node 4 was kept")
	}
}

func TestAdjacency_SelfLoopAndMultiEdge(t *testing.T) {
	g := New()
	g.NewEvent(0, nil)
	g.NewEvent(0, nil)
	for _, e := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {0, 1}} {
		if err := g.AddEdge(e[0], e[1], 0); err != nil {
			t.Fatal(err)
		}
	}
	adj := g.Adjacency(g.All())
	if diff := cmp.Diff([]int{0, 1}, adj.Neighbors(0)); diff != "" {
		t.Errorf("Neighbors(0) mismatch (-want +got):\n%s", diff)
	}
	if adj.Degree(1) != 1 {
		t.Errorf("Degree(1) = %d, want 1", adj.Degree(1))
	}
}

func TestAdjacency_IsolatedActiveNodes(t *testing.T) {
	g := New()
	for i := 0; i < 3; i++ {
		g.NewEvent(0, nil)
	}
	adj := g.Adjacency(g.All())
	for _, id := range adj.Nodes() {
		if adj.Degree(id) != 0 {
			t.Errorf("Degree(%d) = %d, want 0", id, adj.Degree(id))
		}
	}
	if len(adj.Components()) != 3 {
		t.Errorf("Components() = %d, want 3", len(adj.Components()))
	}
}

func TestLargestComponent(t *testing.T) {
	g := New()
	for i := 0; i < 9; i++ {
		g.NewEvent(0, nil)
	}
	// Components {0,1}, {2,3,4,5}, {6,7,8}.
	for _, e := range [][2]int{{0, 1}, {2, 3}, {3, 4}, {5, 2}, {6, 7}, {7, 8}} {
		if err := g.AddEdge(e[0], e[1], 0); err != nil {
			t.Fatal(err)
		}
	}
	adj := g.Adjacency(g.All())

	comp := adj.LargestComponent()
	if len(comp) != 4 {
		t.Fatalf("LargestComponent() size = %d, want 4", len(comp))
	}
	members := NewActiveSet(comp...)
	for _, id := range []int{2, 3, 4, 5} {
		if !members.Contains(id) {
			t.Errorf("node %d missing from largest component", id)
		}
	}

	if got := New().Adjacency(NewActiveSet()).LargestComponent(); got != nil {
		t.Errorf("empty LargestComponent() = %v, want nil", got)
	}
}

func TestLargestComponent_DeepChain(t *testing.T) {
	g := Path(20000)
	comp := g.Adjacency(g.All()).LargestComponent()
	if len(comp) != 20000 {
		t.Errorf("LargestComponent() size = %d, want 20000", len(comp))
	}
}

func TestRestrict(t *testing.T) {
	g := fiveCycle(t)
	sub := g.Adjacency(g.All()).Restrict([]int{0, 1, 2})

	want := map[int][]int{0: {1}, 1: {0, 2}, 2: {1}}
	got := map[int][]int{}
	for _, id := range sub.Nodes() {
		got[id] = sub.Neighbors(id)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Restrict() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name      string
		g         *Graph
		nodes     int
		edges     int
		minDegree int
		maxDegree int
	}{
		{"ring", Ring(12), 12, 12, 2, 2},
		{"path", Path(5), 5, 4, 1, 2},
		{"lattice", Lattice2D(5, 4), 20, 40, 4, 4},
		{"star", Star(6), 7, 6, 1, 6},
		{"complete", Complete(5), 5, 10, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.g.Len() != tt.nodes {
				t.Errorf("Len() = %d, want %d", tt.g.Len(), tt.nodes)
			}
			if tt.g.EdgeCount() != tt.edges {
				t.Errorf("EdgeCount() = %d, want %d", tt.g.EdgeCount(), tt.edges)
			}
			adj := tt.g.Adjacency(tt.g.All())
			for _, id := range adj.Nodes() {
				if d := adj.Degree(id); d < tt.minDegree || d > tt.maxDegree {
					t.Errorf("Degree(%d) = %d, want in [%d, %d]", id, d, tt.minDegree, tt.maxDegree)
				}
			}
		})
	}
}
