package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/store"
	"github.com/spf13/cobra"
)

func newGeometryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geometry",
		Short: "Measure the geometry of a stored run",
		Long: `Recompute order parameters and geometry diagnostics of a run stored in
the run database. By default the active set is taken at the run's final tick
with its own coherence window; --t and --window select another snapshot.

Examples:
  bcqmvi geometry --db runs.db --run-id pathA__base__N8__n0.400__seed1
  bcqmvi geometry --db runs.db --run-id <id> --t 200 --window 50 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			runID, _ := cmd.Flags().GetString("run-id")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			run, err := runs.LoadRun(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}
			t, window, err := snapshotFlags(cmd, run)
			if err != nil {
				return err
			}
			active := run.Graph.VActive(t, window, run.Frontiers)
			adj := run.Graph.Adjacency(active)

			spectral := cfg.Geometry.Spectral
			spectral.Seed = run.Info.Seed
			res := geometry.Estimate(adj, spectral)

			var ball *geometry.BallResult
			if cfg.Geometry.BallEnabled {
				bc := cfg.Geometry.BallGrowth
				bc.Seed = run.Info.Seed
				b := geometry.BallGrowth(adj, bc)
				ball = &b
			}

			ops := orderparam.Compute(run.Graph, active, cfg.OrderParams)
			geo := metrics.NewGeometry(res, ball, cfg.Geometry.MinR2)

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"run_id":       runID,
					"t":            t,
					"window":       window,
					"order_params": ops,
					"geometry":     geo,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Run %s at t=%d (window %d)\n", runID, t, window)
			printOrderParams(cmd, ops)
			printGeometry(cmd, geo)
			return nil
		},
	}

	cmd.Flags().String("run-id", "", "Stored run identifier")
	cmd.Flags().Int("t", 0, "Tick to evaluate at (default: final tick of the run)")
	cmd.Flags().Int("window", 0, "Coherence window (default: window of the run)")
	cmd.MarkFlagRequired("run-id")

	return cmd
}

// snapshotFlags resolves --t and --window against the stored run.
func snapshotFlags(cmd *cobra.Command, run *store.StoredRun) (t, window int, err error) {
	t, window = run.Info.FinalTick, run.Info.Window
	if cmd.Flags().Changed("t") {
		t, _ = cmd.Flags().GetInt("t")
		if t < 0 {
			return 0, 0, fmt.Errorf("--t must be non-negative, got %d", t)
		}
	}
	if cmd.Flags().Changed("window") {
		window, _ = cmd.Flags().GetInt("window")
		if window < 0 {
			return 0, 0, fmt.Errorf("--window must be non-negative, got %d", window)
		}
	}
	return t, window, nil
}

func printOrderParams(cmd *cobra.Command, s orderparam.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "  order parameters:")
	fmt.Fprintf(out, "    active_size:  %d\n", s.ActiveSize)
	fmt.Fprintf(out, "    max_indegree: %d\n", s.MaxIndegree)
	fmt.Fprintf(out, "    hubshare:     %.4f\n", s.Hubshare)
	fmt.Fprintf(out, "    S_junc_w:     %.4f\n", s.SJuncW)
	fmt.Fprintf(out, "    S_perc:       %.4f\n", s.SPerc)
	fmt.Fprintf(out, "    clustering:   %.4f\n", s.Clustering)
}

func printGeometry(cmd *cobra.Command, g *metrics.Geometry) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "  geometry:")
	fmt.Fprintf(out, "    component:    %d (%.1f%% of active)\n", g.CompSize, 100*g.CompFraction)
	fmt.Fprintf(out, "    ds_est:       %s\n", formatOptional(g.DSEst, "%.3f"))
	fmt.Fprintf(out, "    r2:           %s\n", formatOptional(g.R2, "%.3f"))
	fmt.Fprintf(out, "    plateau_est:  %s\n", formatOptional(g.PlateauEst, "%.4g"))
	fmt.Fprintf(out, "    ds_valid:     %v\n", g.DSValid)
	if g.Notes != "" {
		fmt.Fprintf(out, "    notes:        %s\n", g.Notes)
	}
	if g.BallGrowth != nil && g.BallGrowth.Reason == "" {
		fmt.Fprintf(out, "    ball growth:  %d radii from %d sources\n", len(g.BallGrowth.MeanBall), g.BallGrowth.Samples)
	}
}
