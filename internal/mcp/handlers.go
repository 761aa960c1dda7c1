package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bcqm-vi/spacetime/internal/eventgraph"
	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/ratelimit"
	"github.com/bcqm-vi/spacetime/internal/store"
	"github.com/bcqm-vi/spacetime/internal/visualization"
)

// MaxWalkers bounds n_walkers per geometry_spectral_dimension call.
const MaxWalkers = 100000

// registerTools registers all geometry tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geometry_list_runs",
		Description: "List the stored event-graph runs with their growth parameters",
	}, s.handleListRuns)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geometry_order_params",
		Description: "Compute order parameters (max indegree, hub share, junction weight, percolation, clustering) of a run's active set",
	}, s.handleOrderParams)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geometry_spectral_dimension",
		Description: "Estimate the spectral dimension of a run's active set from random-walk return probabilities",
	}, s.handleSpectralDimension)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geometry_ball_growth",
		Description: "Measure mean BFS ball size per radius on a run's active set",
	}, s.handleBallGrowth)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "geometry_graph",
		Description: "Render a run's active subgraph in DOT (Graphviz) or JSON format",
	}, s.handleGraph)
}

// activeView is a stored run with the active set a tool call evaluates.
type activeView struct {
	run    *store.StoredRun
	active eventgraph.ActiveSet
	t      int
	window int
}

// loadActive loads runID and selects its active set, defaulting t and window
// to the values the run was stored with.
func (s *Server) loadActive(ctx context.Context, runID string, t, window *int) (activeView, error) {
	if runID == "" {
		return activeView{}, errors.New("run_id is required")
	}
	run, err := s.store.LoadRun(ctx, runID)
	if err != nil {
		return activeView{}, fmt.Errorf("load run %q: %w", runID, err)
	}

	v := activeView{run: run, t: run.Info.FinalTick, window: run.Info.Window}
	if t != nil {
		if *t < 0 {
			return activeView{}, fmt.Errorf("t must be non-negative, got %d", *t)
		}
		v.t = *t
	}
	if window != nil {
		if *window < 0 {
			return activeView{}, fmt.Errorf("window must be non-negative, got %d", *window)
		}
		v.window = *window
	}
	v.active = run.Graph.VActive(v.t, v.window, run.Frontiers)
	return v, nil
}

// handleListRuns implements the geometry_list_runs tool.
func (s *Server) handleListRuns(ctx context.Context, req *sdk.CallToolRequest, args ListRunsInput) (_ *sdk.CallToolResult, _ ListRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geometry_list_runs", start, retErr, sanitizeToolParams(map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geometry_list_runs"); err != nil {
		return nil, ListRunsOutput{}, err
	}

	runs, err := s.store.ListRuns(ctx)
	if err != nil {
		return nil, ListRunsOutput{}, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []store.RunInfo{}
	}
	return nil, ListRunsOutput{Runs: runs, Count: len(runs)}, nil
}

// handleOrderParams implements the geometry_order_params tool.
func (s *Server) handleOrderParams(ctx context.Context, req *sdk.CallToolRequest, args OrderParamsInput) (_ *sdk.CallToolResult, _ OrderParamsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geometry_order_params", start, retErr, sanitizeToolParams(map[string]interface{}{
			"run_id": args.RunID,
			"t":      args.T,
			"window": args.Window,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geometry_order_params"); err != nil {
		return nil, OrderParamsOutput{}, err
	}

	v, err := s.loadActive(ctx, args.RunID, args.T, args.Window)
	if err != nil {
		return nil, OrderParamsOutput{}, err
	}

	return nil, OrderParamsOutput{
		RunID:       args.RunID,
		T:           v.t,
		Window:      v.window,
		OrderParams: orderparam.Compute(v.run.Graph, v.active, s.orderParams),
	}, nil
}

// handleSpectralDimension implements the geometry_spectral_dimension tool.
// An estimate that fails is reported in the output notes, not as an error.
func (s *Server) handleSpectralDimension(ctx context.Context, req *sdk.CallToolRequest, args SpectralInput) (_ *sdk.CallToolResult, _ SpectralOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geometry_spectral_dimension", start, retErr, sanitizeToolParams(map[string]interface{}{
			"run_id":    args.RunID,
			"t":         args.T,
			"window":    args.Window,
			"seed":      args.Seed,
			"n_walkers": args.NWalkers,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geometry_spectral_dimension"); err != nil {
		return nil, SpectralOutput{}, err
	}

	v, err := s.loadActive(ctx, args.RunID, args.T, args.Window)
	if err != nil {
		return nil, SpectralOutput{}, err
	}

	cfg := s.spectral
	cfg.Seed = v.run.Info.Seed
	if args.Seed != nil {
		cfg.Seed = *args.Seed
	}
	if args.NWalkers != nil {
		if *args.NWalkers <= 0 || *args.NWalkers > MaxWalkers {
			return nil, SpectralOutput{}, fmt.Errorf("n_walkers must be between 1 and %d, got %d", MaxWalkers, *args.NWalkers)
		}
		cfg.NWalkers = *args.NWalkers
	}

	res := geometry.Estimate(v.run.Graph.Adjacency(v.active), cfg)
	s.logger.Debug("spectral estimate", "run_id", args.RunID, "ok", res.OK(), "reason", res.Reason)

	return nil, SpectralOutput{
		RunID:    args.RunID,
		T:        v.t,
		Window:   v.window,
		Geometry: *metrics.NewGeometry(res, nil, s.minR2),
	}, nil
}

// handleBallGrowth implements the geometry_ball_growth tool.
func (s *Server) handleBallGrowth(ctx context.Context, req *sdk.CallToolRequest, args BallGrowthInput) (_ *sdk.CallToolResult, _ BallGrowthOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geometry_ball_growth", start, retErr, sanitizeToolParams(map[string]interface{}{
			"run_id":  args.RunID,
			"t":       args.T,
			"window":  args.Window,
			"samples": args.Samples,
			"seed":    args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geometry_ball_growth"); err != nil {
		return nil, BallGrowthOutput{}, err
	}

	v, err := s.loadActive(ctx, args.RunID, args.T, args.Window)
	if err != nil {
		return nil, BallGrowthOutput{}, err
	}

	cfg := s.ball
	cfg.Seed = v.run.Info.Seed
	if args.Seed != nil {
		cfg.Seed = *args.Seed
	}
	if args.Samples != nil {
		if *args.Samples <= 0 {
			return nil, BallGrowthOutput{}, fmt.Errorf("samples must be positive, got %d", *args.Samples)
		}
		cfg.Samples = *args.Samples
	}

	return nil, BallGrowthOutput{
		RunID:      args.RunID,
		T:          v.t,
		Window:     v.window,
		BallGrowth: geometry.BallGrowth(v.run.Graph.Adjacency(v.active), cfg),
	}, nil
}

// handleGraph implements the geometry_graph tool.
func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("geometry_graph", start, retErr, sanitizeToolParams(map[string]interface{}{
			"run_id": args.RunID,
			"t":      args.T,
			"window": args.Window,
			"format": args.Format,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "geometry_graph"); err != nil {
		return nil, GraphOutput{}, err
	}

	format := args.Format
	if format == "" {
		format = string(visualization.FormatJSON)
	}

	v, err := s.loadActive(ctx, args.RunID, args.T, args.Window)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	g, frontiers := v.run.Graph, v.run.Frontiers

	switch visualization.Format(format) {
	case visualization.FormatDOT:
		return nil, GraphOutput{
			RunID:     args.RunID,
			Format:    format,
			Graph:     visualization.RenderDOT(g, v.active, frontiers),
			NodeCount: v.active.Len(),
			EdgeCount: len(visualization.CollectEdges(g, v.active)),
		}, nil

	case visualization.FormatJSON:
		result := visualization.RenderJSON(g, v.active, frontiers)
		return nil, GraphOutput{
			RunID:     args.RunID,
			Format:    format,
			Graph:     result,
			NodeCount: result.NodeCount,
			EdgeCount: result.EdgeCount,
		}, nil

	default:
		return nil, GraphOutput{}, fmt.Errorf("unsupported format %q (valid: dot, json)", format)
	}
}
