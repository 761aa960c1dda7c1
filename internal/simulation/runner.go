package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
)

// GrowthConfig holds the parameters of the thread-bundle growth model.
type GrowthConfig struct {
	// Threads is the bundle size N.
	Threads int `json:"threads" yaml:"threads"`

	// Coupling is the per-event junction probability n, in [0, 1].
	Coupling float64 `json:"coupling" yaml:"coupling"`

	// Steps is the number of ticks after the root tick.
	Steps int `json:"steps" yaml:"steps"`

	// Window is the coherence window W_coh used for active-set selection.
	Window int `json:"window" yaml:"window"`

	// SampleEvery records an order-parameter sample every k ticks.
	// Zero disables the time series.
	SampleEvery int `json:"sample_every" yaml:"sample_every"`

	Seed uint64 `json:"seed" yaml:"seed"`
}

// Validate checks the growth parameters.
func (c GrowthConfig) Validate() error {
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Coupling < 0 || c.Coupling > 1 {
		return fmt.Errorf("coupling must be between 0 and 1, got %f", c.Coupling)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.Window < 0 {
		return fmt.Errorf("window must be non-negative, got %d", c.Window)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("sample_every must be non-negative, got %d", c.SampleEvery)
	}
	return nil
}

// Run is the state left behind by Grow.
type Run struct {
	Graph     *eventgraph.Graph
	Frontiers []int
	FinalTick int
	Junctions int

	Timeseries []metrics.TickSample
}

// Active returns the active set at the final tick.
func (r *Run) Active(window int) eventgraph.ActiveSet {
	return r.Graph.VActive(r.FinalTick, window, r.Frontiers)
}

// Grower drives the growth model. It is the single writer of its graph.
type Grower struct {
	cfg    GrowthConfig
	opCfg  orderparam.Config
	logger *slog.Logger
}

// NewGrower creates a grower. A nil logger discards output.
func NewGrower(cfg GrowthConfig, opCfg orderparam.Config, logger *slog.Logger) *Grower {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Grower{cfg: cfg, opCfg: opCfg, logger: logger}
}

// Grow builds a fresh graph. The context is checked between ticks; order
// parameters are only sampled between ticks, never while edges are inserted.
func (gr *Grower) Grow(ctx context.Context) (*Run, error) {
	if err := gr.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid growth config: %w", err)
	}

	rng := rand.New(rand.NewPCG(gr.cfg.Seed, 2))
	g := eventgraph.New()
	run := &Run{Graph: g}

	frontiers := make([]int, gr.cfg.Threads)
	for i := range frontiers {
		domain := i
		frontiers[i] = g.NewEvent(0, &domain)
	}

	for t := 1; t <= gr.cfg.Steps; t++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("growth stopped at tick %d: %w", t, err)
		}

		next := make([]int, len(frontiers))
		for i, prev := range frontiers {
			domain := i
			e := g.NewEvent(t, &domain)
			if err := g.AddEdge(prev, e, t); err != nil {
				return nil, fmt.Errorf("tick %d thread %d: %w", t, i, err)
			}
			if len(frontiers) > 1 && rng.Float64() < gr.cfg.Coupling {
				// Draw another thread uniformly.
				j := rng.IntN(len(frontiers) - 1)
				if j >= i {
					j++
				}
				if err := g.AddEdge(frontiers[j], e, t); err != nil {
					return nil, fmt.Errorf("tick %d junction %d->%d: %w", t, j, i, err)
				}
				run.Junctions++
			}
			next[i] = e
		}
		frontiers = next

		if gr.cfg.SampleEvery > 0 && t%gr.cfg.SampleEvery == 0 {
			active := g.VActive(t, gr.cfg.Window, frontiers)
			snap := orderparam.Compute(g, active, gr.opCfg)
			run.Timeseries = append(run.Timeseries, metrics.TickSample{Tick: t, Snapshot: snap})
			gr.logger.Log(ctx, logging.LevelTrace, "tick sample",
				"t", t, "active", snap.ActiveSize, "S_perc", snap.SPerc, "max_indeg", snap.MaxIndegree)
		}
	}

	run.Frontiers = frontiers
	run.FinalTick = gr.cfg.Steps
	gr.logger.Debug("growth finished",
		"events", g.Len(), "edges", g.EdgeCount(), "junctions", run.Junctions)
	return run, nil
}
