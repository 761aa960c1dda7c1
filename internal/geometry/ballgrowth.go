package geometry

import (
	"math/rand/v2"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

// BallConfig holds the parameters of BallGrowth.
type BallConfig struct {
	// Samples is the number of BFS sources drawn from the component. Default: 50.
	Samples int `json:"samples" yaml:"samples"`

	// RMax is the largest radius measured. Default: 20.
	RMax int `json:"r_max" yaml:"r_max"`

	// Seed selects the sources. Like Config.Seed it comes from the run.
	Seed uint64 `json:"-" yaml:"-"`

	// MinComponent matches Config.MinComponent. Default: 10.
	MinComponent int `json:"min_component" yaml:"min_component"`
}

// DefaultBallConfig returns the default ball-growth configuration.
func DefaultBallConfig() BallConfig {
	return BallConfig{Samples: 50, RMax: 20, MinComponent: 10}
}

// BallResult holds the mean cumulative ball size against radius.
type BallResult struct {
	CompSize int    `json:"comp_size"`
	Samples  int    `json:"samples"`
	RMax     int    `json:"r_max"`
	Reason   Reason `json:"reason,omitempty"`

	// MeanBall[r] is the mean number of nodes within distance r of a source.
	MeanBall []float64 `json:"mean_ball,omitempty"`
}

// BallGrowth measures |B(v, r)| for r = 0..RMax on the largest component of
// adj, averaged over sampled sources. When the component has no more nodes
// than Samples, every node is used as a source.
func BallGrowth(adj *eventgraph.Adjacency, cfg BallConfig) BallResult {
	comp := adj.LargestComponent()
	rMax := max(cfg.RMax, 0)
	res := BallResult{CompSize: len(comp), RMax: rMax}
	if len(comp) < cfg.MinComponent || len(comp) == 0 {
		res.Reason = ReasonComponentTooSmall
		return res
	}
	sub := adj.Restrict(comp)

	sources := comp
	if cfg.Samples > 0 && cfg.Samples < len(comp) {
		rng := rand.New(rand.NewPCG(cfg.Seed, 1))
		sources = make([]int, cfg.Samples)
		for i := range sources {
			sources[i] = comp[rng.IntN(len(comp))]
		}
	}
	res.Samples = len(sources)

	sum := make([]float64, rMax+1)
	for _, src := range sources {
		for r, n := range ballSizes(sub, src, rMax) {
			sum[r] += float64(n)
		}
	}
	for r := range sum {
		sum[r] /= float64(len(sources))
	}
	res.MeanBall = sum
	return res
}

// ballSizes returns the cumulative number of nodes within distance r of src
// for r = 0..rMax.
func ballSizes(adj *eventgraph.Adjacency, src, rMax int) []int {
	shell := make([]int, rMax+1)
	dist := map[int]int{src: 0}
	queue := []int{src}
	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		d := dist[x]
		shell[d]++
		if d == rMax {
			continue
		}
		for _, nb := range adj.Neighbors(x) {
			if _, ok := dist[nb]; !ok {
				dist[nb] = d + 1
				queue = append(queue, nb)
			}
		}
	}
	for r := 1; r <= rMax; r++ {
		shell[r] += shell[r-1]
	}
	return shell
}
