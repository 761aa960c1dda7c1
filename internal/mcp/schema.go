package mcp

import (
	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/store"
)

// ListRunsInput defines the input for geometry_list_runs tool.
type ListRunsInput struct{}

// ListRunsOutput defines the output for geometry_list_runs tool.
type ListRunsOutput struct {
	Runs  []store.RunInfo `json:"runs" jsonschema:"Stored runs ordered by run id"`
	Count int             `json:"count" jsonschema:"Number of stored runs"`
}

// OrderParamsInput defines the input for geometry_order_params tool.
type OrderParamsInput struct {
	RunID  string `json:"run_id" jsonschema:"Stored run identifier"`
	T      *int   `json:"t,omitempty" jsonschema:"Tick to evaluate at (default: the final tick of the run)"`
	Window *int   `json:"window,omitempty" jsonschema:"Coherence window in ticks (default: the window of the run)"`
}

// OrderParamsOutput defines the output for geometry_order_params tool.
type OrderParamsOutput struct {
	RunID       string              `json:"run_id" jsonschema:"Run identifier"`
	T           int                 `json:"t" jsonschema:"Tick the active set was taken at"`
	Window      int                 `json:"window" jsonschema:"Coherence window used"`
	OrderParams orderparam.Snapshot `json:"order_params" jsonschema:"Order parameters of the active set"`
}

// SpectralInput defines the input for geometry_spectral_dimension tool.
type SpectralInput struct {
	RunID    string  `json:"run_id" jsonschema:"Stored run identifier"`
	T        *int    `json:"t,omitempty" jsonschema:"Tick to evaluate at (default: the final tick of the run)"`
	Window   *int    `json:"window,omitempty" jsonschema:"Coherence window in ticks (default: the window of the run)"`
	Seed     *uint64 `json:"seed,omitempty" jsonschema:"Random-walk seed (default: the seed of the run)"`
	NWalkers *int    `json:"n_walkers,omitempty" jsonschema:"Number of random walkers (default: server setting, at most 100000)"`
}

// SpectralOutput defines the output for geometry_spectral_dimension tool.
type SpectralOutput struct {
	RunID    string           `json:"run_id" jsonschema:"Run identifier"`
	T        int              `json:"t" jsonschema:"Tick the active set was taken at"`
	Window   int              `json:"window" jsonschema:"Coherence window used"`
	Geometry metrics.Geometry `json:"geometry" jsonschema:"Spectral-dimension estimate and return-probability diagnostics"`
}

// BallGrowthInput defines the input for geometry_ball_growth tool.
type BallGrowthInput struct {
	RunID   string  `json:"run_id" jsonschema:"Stored run identifier"`
	T       *int    `json:"t,omitempty" jsonschema:"Tick to evaluate at (default: the final tick of the run)"`
	Window  *int    `json:"window,omitempty" jsonschema:"Coherence window in ticks (default: the window of the run)"`
	Samples *int    `json:"samples,omitempty" jsonschema:"Number of BFS sources (default: server setting)"`
	Seed    *uint64 `json:"seed,omitempty" jsonschema:"Source sampling seed (default: the seed of the run)"`
}

// BallGrowthOutput defines the output for geometry_ball_growth tool.
type BallGrowthOutput struct {
	RunID      string              `json:"run_id" jsonschema:"Run identifier"`
	T          int                 `json:"t" jsonschema:"Tick the active set was taken at"`
	Window     int                 `json:"window" jsonschema:"Coherence window used"`
	BallGrowth geometry.BallResult `json:"ball_growth" jsonschema:"Mean ball size per radius"`
}

// GraphInput defines the input for geometry_graph tool.
type GraphInput struct {
	RunID  string `json:"run_id" jsonschema:"Stored run identifier"`
	T      *int   `json:"t,omitempty" jsonschema:"Tick to evaluate at (default: the final tick of the run)"`
	Window *int   `json:"window,omitempty" jsonschema:"Coherence window in ticks (default: the window of the run)"`
	Format string `json:"format,omitempty" jsonschema:"Output format: dot or json (default: json)"`
}

// GraphOutput defines the output for geometry_graph tool.
type GraphOutput struct {
	RunID     string      `json:"run_id" jsonschema:"Run identifier"`
	Format    string      `json:"format" jsonschema:"Output format used"`
	Graph     interface{} `json:"graph" jsonschema:"Rendered active subgraph: DOT string or JSON object"`
	NodeCount int         `json:"node_count" jsonschema:"Number of active events rendered"`
	EdgeCount int         `json:"edge_count" jsonschema:"Number of distinct active edges rendered"`
}
