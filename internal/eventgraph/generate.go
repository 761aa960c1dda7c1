package eventgraph

// Canonical graphs with known geometry. All events are created at tick 0 and
// edges carry tick 0, so VActive(0, 0, nil) selects every node.

// Ring returns a cycle of n events, each linked to its successor.
func Ring(n int) *Graph {
	g := New()
	for i := 0; i < n; i++ {
		g.NewEvent(0, nil)
	}
	for i := 0; i < n; i++ {
		mustAdd(g, i, (i+1)%n)
	}
	return g
}

// Path returns a chain of n events.
func Path(n int) *Graph {
	g := New()
	for i := 0; i < n; i++ {
		g.NewEvent(0, nil)
	}
	for i := 0; i+1 < n; i++ {
		mustAdd(g, i, i+1)
	}
	return g
}

// Lattice2D returns a w×h periodic square lattice (a torus). Node (x, y) has
// id y*w+x.
func Lattice2D(w, h int) *Graph {
	g := New()
	for i := 0; i < w*h; i++ {
		g.NewEvent(0, nil)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := y*w + x
			mustAdd(g, id, y*w+(x+1)%w)
			mustAdd(g, id, ((y+1)%h)*w+x)
		}
	}
	return g
}

// Star returns a center (id 0) with k leaves, every leaf pointing at the
// center.
func Star(k int) *Graph {
	g := New()
	g.NewEvent(0, nil)
	for i := 1; i <= k; i++ {
		g.NewEvent(0, nil)
		mustAdd(g, i, 0)
	}
	return g
}

// Complete returns the complete graph on n events, edges pointing from the
// lower id to the higher id.
func Complete(n int) *Graph {
	g := New()
	for i := 0; i < n; i++ {
		g.NewEvent(0, nil)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			mustAdd(g, i, j)
		}
	}
	return g
}

func mustAdd(g *Graph, u, v int) {
	if err := g.AddEdge(u, v, 0); err != nil {
		panic(err)
	}
}
