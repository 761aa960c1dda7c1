package eventgraph

import (
	"slices"
	"sort"
)

// Adjacency is an undirected view of an active subgraph. It is built once and
// never mutated afterwards.
type Adjacency struct {
	// order is the active set's insertion order.
	order []int
	// nbrs maps every node to its sorted, de-duplicated neighbors.
	nbrs map[int][]int
}

// Adjacency projects the edges with both endpoints in active onto an
// undirected neighbor map. Every active id is present, possibly with no
// neighbors. Self loops become self-neighbor entries.
func (g *Graph) Adjacency(active ActiveSet) *Adjacency {
	sets := make(map[int]map[int]struct{}, active.Len())
	for _, id := range active.ids {
		sets[id] = make(map[int]struct{})
	}
	for _, e := range g.edges {
		if !active.Contains(e.Source) || !active.Contains(e.Target) {
			continue
		}
		sets[e.Source][e.Target] = struct{}{}
		sets[e.Target][e.Source] = struct{}{}
	}
	return fromSets(active.ids, sets)
}

func fromSets(order []int, sets map[int]map[int]struct{}) *Adjacency {
	a := &Adjacency{
		order: slices.Clone(order),
		nbrs:  make(map[int][]int, len(order)),
	}
	for _, id := range order {
		list := make([]int, 0, len(sets[id]))
		for nb := range sets[id] {
			list = append(list, nb)
		}
		sort.Ints(list)
		a.nbrs[id] = list
	}
	return a
}

// Len returns the number of nodes, isolated ones included.
func (a *Adjacency) Len() int { return len(a.order) }

// Nodes returns the nodes in active-set order.
func (a *Adjacency) Nodes() []int { return slices.Clone(a.order) }

// Neighbors returns the sorted neighbors of id. The slice must not be modified.
func (a *Adjacency) Neighbors(id int) []int { return a.nbrs[id] }

// Degree returns the number of distinct neighbors of id.
func (a *Adjacency) Degree(id int) int { return len(a.nbrs[id]) }

// HasEdge reports whether u and v are adjacent.
func (a *Adjacency) HasEdge(u, v int) bool {
	_, found := slices.BinarySearch(a.nbrs[u], v)
	return found
}

// Components returns the connected components in discovery order. Each
// component lists its nodes in depth-first pop order.
func (a *Adjacency) Components() [][]int {
	seen := make(map[int]bool, len(a.order))
	var comps [][]int
	for _, start := range a.order {
		if seen[start] {
			continue
		}
		comps = append(comps, a.collect(start, seen))
	}
	return comps
}

// LargestComponent returns the members of the first-discovered component of
// maximal size, or nil for an empty adjacency.
func (a *Adjacency) LargestComponent() []int {
	seen := make(map[int]bool, len(a.order))
	var best []int
	for _, start := range a.order {
		if seen[start] {
			continue
		}
		if comp := a.collect(start, seen); len(comp) > len(best) {
			best = comp
		}
	}
	return best
}

// collect runs an iterative depth-first traversal from start.
func (a *Adjacency) collect(start int, seen map[int]bool) []int {
	stack := []int{start}
	seen[start] = true
	var comp []int
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		comp = append(comp, x)
		for _, nb := range a.nbrs[x] {
			if !seen[nb] {
				seen[nb] = true
				stack = append(stack, nb)
			}
		}
	}
	return comp
}

// Restrict returns the sub-adjacency induced by members, keeping members'
// order. Ids absent from a are included with no neighbors.
func (a *Adjacency) Restrict(members []int) *Adjacency {
	keep := make(map[int]bool, len(members))
	for _, id := range members {
		keep[id] = true
	}
	sub := &Adjacency{
		order: make([]int, 0, len(members)),
		nbrs:  make(map[int][]int, len(members)),
	}
	for _, id := range members {
		if _, dup := sub.nbrs[id]; dup {
			continue
		}
		sub.order = append(sub.order, id)
		list := make([]int, 0, len(a.nbrs[id]))
		for _, nb := range a.nbrs[id] {
			if keep[nb] {
				list = append(list, nb)
			}
		}
		sub.nbrs[id] = list
	}
	return sub
}
