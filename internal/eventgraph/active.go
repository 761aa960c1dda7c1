package eventgraph

import "slices"

// ActiveSet is an ordered set of event ids. Iteration follows insertion
// order, which keeps every downstream statistic reproducible.
type ActiveSet struct {
	ids     []int
	members map[int]struct{}
}

// NewActiveSet builds a set from ids, dropping duplicates but keeping the
// first occurrence's position.
func NewActiveSet(ids ...int) ActiveSet {
	a := ActiveSet{
		ids:     make([]int, 0, len(ids)),
		members: make(map[int]struct{}, len(ids)),
	}
	for _, id := range ids {
		a.add(id)
	}
	return a
}

func (a *ActiveSet) add(id int) {
	if _, ok := a.members[id]; ok {
		return
	}
	a.members[id] = struct{}{}
	a.ids = append(a.ids, id)
}

// Contains reports whether id is in the set.
func (a ActiveSet) Contains(id int) bool {
	_, ok := a.members[id]
	return ok
}

// Len returns the number of ids.
func (a ActiveSet) Len() int { return len(a.ids) }

// IDs returns the ids in insertion order.
func (a ActiveSet) IDs() []int { return slices.Clone(a.ids) }

// VActive returns the events live at tick t: every event created at or after
// t-window, followed by the frontier ids regardless of age. Frontier ids are
// the caller's responsibility and are not checked against the graph.
func (g *Graph) VActive(t, window int, frontiers []int) ActiveSet {
	cutoff := t - window
	a := NewActiveSet()
	for _, ev := range g.events {
		if ev.CreatedAt >= cutoff {
			a.add(ev.ID)
		}
	}
	for _, id := range frontiers {
		a.add(id)
	}
	return a
}

// All returns every event id in the graph as an active set.
func (g *Graph) All() ActiveSet {
	a := NewActiveSet()
	for _, ev := range g.events {
		a.add(ev.ID)
	}
	return a
}
