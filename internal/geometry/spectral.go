// Package geometry estimates geometric observables of an active event
// subgraph: the spectral dimension from random-walk return probabilities and
// the growth of graph-distance balls.
//
// Estimation problems are reported as a Result carrying a Reason, never as an
// error, so that a scan over many configurations is not interrupted by one
// ill-conditioned sample.
package geometry

import (
	"math"
	"math/rand/v2"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
)

// Reason names why an estimate could not be produced.
type Reason string

const (
	ReasonComponentTooSmall     Reason = "component_too_small"
	ReasonNoNeighbours          Reason = "no_neighbours"
	ReasonInsufficientFitPoints Reason = "insufficient_fit_points"
	ReasonDegenerateFit         Reason = "degenerate_fit"
)

// Config holds the random-walk and fit parameters of Estimate.
type Config struct {
	// TMax is the number of steps per walk. Default: 60.
	TMax int `json:"t_max" yaml:"t_max"`

	// NWalkers is the number of independent walks. Default: 300.
	NWalkers int `json:"n_walkers" yaml:"n_walkers"`

	// FitTMin and FitTMax bound the log-log fit window. Defaults: 5, 30.
	FitTMin int `json:"fit_t_min" yaml:"fit_t_min"`
	FitTMax int `json:"fit_t_max" yaml:"fit_t_max"`

	// Seed makes the walk reproducible. It is not read from config files:
	// runs estimate with the run seed.
	Seed uint64 `json:"-" yaml:"-"`

	// MinComponent is the smallest component worth simulating. Default: 10.
	MinComponent int `json:"min_component" yaml:"min_component"`
}

// DefaultConfig returns the default estimator configuration.
func DefaultConfig() Config {
	return Config{
		TMax:         60,
		NWalkers:     300,
		FitTMin:      5,
		FitTMax:      30,
		MinComponent: 10,
	}
}

// Result is the outcome of one spectral-dimension estimate. Exactly one of
// DSEst and Reason is set.
type Result struct {
	DSEst  *float64 `json:"ds_est"`
	Slope  *float64 `json:"slope,omitempty"`
	R2     *float64 `json:"r2,omitempty"`
	Reason Reason   `json:"reason,omitempty"`

	FitTMin      int     `json:"fit_t_min"`
	FitTMax      int     `json:"fit_t_max"`
	TMax         int     `json:"t_max"`
	NWalkers     int     `json:"n_walkers"`
	FitPoints    int     `json:"fit_points"`
	CompSize     int     `json:"comp_size"`
	CompFraction float64 `json:"comp_fraction"`

	// ReturnProbs holds P0(t) for t = 1..TMax.
	ReturnProbs []float64 `json:"return_probs,omitempty"`
}

// OK reports whether the estimate succeeded.
func (r Result) OK() bool { return r.DSEst != nil }

// EstimateActive projects active onto an undirected graph and estimates its
// spectral dimension.
func EstimateActive(g *eventgraph.Graph, active eventgraph.ActiveSet, cfg Config) Result {
	return Estimate(g.Adjacency(active), cfg)
}

// Estimate runs random walks on the largest connected component of adj and
// fits log P0(t) against log t, where P(t) ~ t^(-ds/2).
//
// A walker on a node without neighbors stays in place for that step; staying
// on its start node counts as a return.
func Estimate(adj *eventgraph.Adjacency, cfg Config) Result {
	res := Result{
		FitTMin:  cfg.FitTMin,
		FitTMax:  cfg.FitTMax,
		TMax:     cfg.TMax,
		NWalkers: cfg.NWalkers,
	}

	comp := adj.LargestComponent()
	res.CompSize = len(comp)
	if adj.Len() > 0 {
		res.CompFraction = float64(len(comp)) / float64(adj.Len())
	}
	if len(comp) < cfg.MinComponent {
		res.Reason = ReasonComponentTooSmall
		return res
	}

	sub := adj.Restrict(comp)
	if !anyNeighbours(sub, comp) {
		res.Reason = ReasonNoNeighbours
		return res
	}

	p0 := returnProbabilities(sub, comp, cfg)
	res.ReturnProbs = p0

	var xs, ys []float64
	for t := max(1, cfg.FitTMin); t <= min(cfg.TMax, cfg.FitTMax); t++ {
		if p := p0[t-1]; p > 0 {
			xs = append(xs, math.Log(float64(t)))
			ys = append(ys, math.Log(p))
		}
	}
	res.FitPoints = len(xs)
	if len(xs) < 3 {
		res.Reason = ReasonInsufficientFitPoints
		return res
	}

	fit, ok := fitLine(xs, ys)
	if !ok {
		res.Reason = ReasonDegenerateFit
		return res
	}
	ds := -2.0 * fit.Slope
	res.DSEst = &ds
	res.Slope = &fit.Slope
	res.R2 = &fit.R2
	return res
}

func anyNeighbours(adj *eventgraph.Adjacency, nodes []int) bool {
	for _, v := range nodes {
		if adj.Degree(v) > 0 {
			return true
		}
	}
	return false
}

// returnProbabilities simulates cfg.NWalkers walks of cfg.TMax steps and
// returns P0(t) for t = 1..TMax. Walkers run one after another from a single
// seeded source so that results depend only on the seed and the snapshot.
func returnProbabilities(adj *eventgraph.Adjacency, nodes []int, cfg Config) []float64 {
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	tMax := max(cfg.TMax, 0)
	returns := make([]int, tMax+1)

	for w := 0; w < cfg.NWalkers; w++ {
		start := nodes[rng.IntN(len(nodes))]
		pos := start
		for t := 1; t <= tMax; t++ {
			if nbrs := adj.Neighbors(pos); len(nbrs) > 0 {
				pos = nbrs[rng.IntN(len(nbrs))]
			}
			if pos == start {
				returns[t]++
			}
		}
	}

	p0 := make([]float64, tMax)
	if cfg.NWalkers <= 0 {
		return p0
	}
	for t := 1; t <= tMax; t++ {
		p0[t-1] = float64(returns[t]) / float64(cfg.NWalkers)
	}
	return p0
}
