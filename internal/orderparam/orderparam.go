// Package orderparam computes scalar observables of an active event subgraph:
// indegree statistics, junction weight, percolation strength and clustering.
//
// Every function is a pure read of a graph snapshot. None of them fail; empty
// or degenerate input yields zero.
package orderparam

import (
	"math"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

const (
	// DefaultJunctionBeta is the exponent applied to indegrees above 2.
	DefaultJunctionBeta = 1.5

	// DefaultClusteringSample caps the nodes evaluated by ClusteringCoeff.
	DefaultClusteringSample = 500
)

// DegreeSource provides stored indegrees by event id.
type DegreeSource interface {
	Indeg(id int) int
}

// Config holds the tunables of Compute.
type Config struct {
	// JunctionBeta is the super-linear exponent of SJuncW. Default: 1.5.
	JunctionBeta float64 `json:"junction_beta" yaml:"junction_beta"`

	// ClusteringSample caps the nodes evaluated by ClusteringCoeff.
	// Zero or negative evaluates every node. Default: 500.
	ClusteringSample int `json:"clustering_sample" yaml:"clustering_sample"`
}

// DefaultConfig returns the default order-parameter configuration.
func DefaultConfig() Config {
	return Config{
		JunctionBeta:     DefaultJunctionBeta,
		ClusteringSample: DefaultClusteringSample,
	}
}

// Snapshot is the full set of order parameters for one active set.
type Snapshot struct {
	ActiveSize  int     `json:"active_size"`
	MaxIndegree int     `json:"max_indegree"`
	Hubshare    float64 `json:"hubshare"`
	SJuncW      float64 `json:"S_junc_w"`
	SPerc       float64 `json:"S_perc"`
	Clustering  float64 `json:"clustering"`
}

// Compute evaluates every order parameter over active.
func Compute(g *eventgraph.Graph, active eventgraph.ActiveSet, cfg Config) Snapshot {
	adj := g.Adjacency(active)
	return Snapshot{
		ActiveSize:  active.Len(),
		MaxIndegree: MaxIndegree(g, active),
		Hubshare:    Hubshare(g, active),
		SJuncW:      SJuncW(g, active, cfg.JunctionBeta),
		SPerc:       SPerc(adj),
		Clustering:  ClusteringCoeff(adj, cfg.ClusteringSample),
	}
}

// MaxIndegree returns the largest stored indegree among active ids.
func MaxIndegree(g DegreeSource, active eventgraph.ActiveSet) int {
	best := 0
	for _, id := range active.IDs() {
		if k := g.Indeg(id); k > best {
			best = k
		}
	}
	return best
}

// Hubshare returns max(indeg)/sum(indeg) over active ids.
func Hubshare(g DegreeSource, active eventgraph.ActiveSet) float64 {
	sum, best := 0, 0
	for _, id := range active.IDs() {
		k := g.Indeg(id)
		sum += k
		if k > best {
			best = k
		}
	}
	if sum == 0 {
		return 0.0
	}
	return float64(best) / float64(sum)
}

// JunctionWeight is the per-node reward: 0 below indegree 2, 1 at exactly 2,
// and k^beta above.
func JunctionWeight(k int, beta float64) float64 {
	switch {
	case k < 2:
		return 0.0
	case k == 2:
		return 1.0
	default:
		return math.Pow(float64(k), beta)
	}
}

// SJuncW returns the mean JunctionWeight over active ids.
func SJuncW(g DegreeSource, active eventgraph.ActiveSet, beta float64) float64 {
	if active.Len() == 0 {
		return 0.0
	}
	s := 0.0
	for _, id := range active.IDs() {
		s += JunctionWeight(g.Indeg(id), beta)
	}
	return s / float64(active.Len())
}

// SPerc returns the fraction of nodes in the largest connected component.
func SPerc(adj *eventgraph.Adjacency) float64 {
	if adj.Len() == 0 {
		return 0.0
	}
	return float64(len(adj.LargestComponent())) / float64(adj.Len())
}

// ClusteringCoeff averages the local clustering coefficient over at most
// sample nodes. When there are more nodes than sample, an evenly strided
// subsequence of the node order is used. Nodes of degree below 2 are skipped.
func ClusteringCoeff(adj *eventgraph.Adjacency, sample int) float64 {
	nodes := SampleNodes(adj.Nodes(), sample)

	sum, n := 0.0, 0
	for _, v := range nodes {
		nbrs := adj.Neighbors(v)
		k := len(nbrs)
		if k < 2 {
			continue
		}
		links := 0
		for i := 0; i < k; i++ {
			for j := i + 1; j < k; j++ {
				if adj.HasEdge(nbrs[i], nbrs[j]) {
					links++
				}
			}
		}
		sum += 2.0 * float64(links) / float64(k*(k-1))
		n++
	}
	if n == 0 {
		return 0.0
	}
	return sum / float64(n)
}

// SampleNodes returns nodes unchanged when sample is non-positive or not
// exceeded; otherwise every floor(len/sample)-th node, truncated to sample.
func SampleNodes(nodes []int, sample int) []int {
	if sample <= 0 || len(nodes) <= sample {
		return nodes
	}
	step := max(1, len(nodes)/sample)
	out := make([]int, 0, sample)
	for i := 0; i < len(nodes) && len(out) < sample; i += step {
		out = append(out, nodes[i])
	}
	return out
}
