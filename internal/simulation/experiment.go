package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/store"
)

// Experiment describes a single run: growth followed by the final-tick
// diagnostics.
type Experiment struct {
	ExperimentID string
	Variant      string

	Growth      GrowthConfig
	OrderParams orderparam.Config
	Spectral    geometry.Config

	// Ball enables ball-growth diagnostics when non-nil.
	Ball *geometry.BallConfig

	// MinR2 is the fit quality required for ds_valid. Zero accepts every
	// successful fit.
	MinR2 float64

	logger *slog.Logger
	trace  *logging.TraceLogger
}

// SetLogger attaches an operational logger and an optional estimator trace.
// Either may be nil.
func (e *Experiment) SetLogger(logger *slog.Logger, trace *logging.TraceLogger) {
	e.logger = logger
	e.trace = trace
}

// RunID returns the run identifier of this experiment.
func (e *Experiment) RunID() string {
	return metrics.RunID(e.ExperimentID, e.Variant, e.Growth.Threads, e.Growth.Coupling, e.Growth.Seed)
}

// StoreInfo describes run for persistence in a store.RunStore.
func (e *Experiment) StoreInfo(run *Run) store.RunInfo {
	return store.RunInfo{
		RunID:        e.RunID(),
		ExperimentID: e.ExperimentID,
		Variant:      e.Variant,
		Threads:      e.Growth.Threads,
		Coupling:     e.Growth.Coupling,
		Seed:         e.Growth.Seed,
		Window:       e.Growth.Window,
		FinalTick:    run.FinalTick,
	}
}

// Run grows the graph and assembles its metrics document. Estimation
// failures end up in the geometry notes; only invalid configuration and
// cancellation are errors.
func (e *Experiment) Run(ctx context.Context) (metrics.RunMetrics, *Run, error) {
	logger := e.logger
	if logger == nil {
		logger = logging.Discard()
	}
	runID := e.RunID()

	run, err := NewGrower(e.Growth, e.OrderParams, logger.With("run_id", runID)).Grow(ctx)
	if err != nil {
		return metrics.RunMetrics{}, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	active := run.Active(e.Growth.Window)
	adj := run.Graph.Adjacency(active)

	spectral := e.Spectral
	spectral.Seed = e.Growth.Seed
	res := geometry.Estimate(adj, spectral)

	var ball *geometry.BallResult
	if e.Ball != nil {
		bc := *e.Ball
		bc.Seed = e.Growth.Seed
		b := geometry.BallGrowth(adj, bc)
		ball = &b
	}

	geo := metrics.NewGeometry(res, ball, e.MinR2)

	m := metrics.RunMetrics{
		RunID:        runID,
		ExperimentID: e.ExperimentID,
		Variant:      e.Variant,
		Threads:      e.Growth.Threads,
		Coupling:     e.Growth.Coupling,
		Seed:         e.Growth.Seed,
		Window:       e.Growth.Window,
		Steps:        e.Growth.Steps,
		OrderParams:  orderparam.Compute(run.Graph, active, e.OrderParams),
		Timeseries:   run.Timeseries,
		Geometry:     geo,
	}

	e.trace.Log(map[string]any{
		"event":      "spectral_estimate",
		"run_id":     runID,
		"comp_size":  res.CompSize,
		"fit_points": res.FitPoints,
		"reason":     string(res.Reason),
		"ds_valid":   geo.DSValid,
	})
	if geo.DSValid {
		logger.Debug("spectral estimate", "run_id", runID, "ds", *geo.DSEst, "r2", *geo.R2)
	} else {
		logger.Debug("spectral estimate rejected", "run_id", runID, "notes", geo.Notes)
	}

	return m, run, nil
}
