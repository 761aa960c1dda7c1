package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Grow one event graph and measure its geometry",
		Long: `Grow a coupled-thread event graph, then compute order parameters,
the spectral dimension and (if enabled) ball growth of its final active set.

The metrics document is written to the output directory. With --db the grown
graph is also stored so that 'geometry', 'graph' and the MCP server can
revisit it.

Examples:
  bcqmvi run                                  # Defaults
  bcqmvi run --config pathA.yaml --seed 4     # Config file, override seed
  bcqmvi run --threads 16 --coupling 0.8 --db runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("threads") {
				cfg.Run.Threads, _ = cmd.Flags().GetInt("threads")
			}
			if cmd.Flags().Changed("coupling") {
				cfg.Run.Coupling, _ = cmd.Flags().GetFloat64("coupling")
			}
			if cmd.Flags().Changed("steps") {
				cfg.Run.Steps, _ = cmd.Flags().GetInt("steps")
			}
			if cmd.Flags().Changed("window") {
				cfg.Run.Window, _ = cmd.Flags().GetInt("window")
			}
			if cmd.Flags().Changed("seed") {
				cfg.Run.Seed, _ = cmd.Flags().GetUint64("seed")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := newLogger(cmd, cfg)
			trace := logging.NewTraceLogger(cfg.Output.Dir, cfg.Logging.Level)
			defer trace.Close()

			exp := cfg.Experiment()
			exp.SetLogger(logger, trace)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			m, run, err := exp.Run(ctx)
			if err != nil {
				return err
			}

			path, err := metrics.Write(cfg.Output.Dir, m)
			if err != nil {
				return err
			}
			logger.Info("run complete", "run_id", m.RunID, "events", run.Graph.Len(), "metrics", path)

			if cfg.Output.DB != "" {
				runs, err := openRunStore(cfg)
				if err != nil {
					return err
				}
				defer runs.Close()
				if err := runs.SaveRun(ctx, exp.StoreInfo(run), run.Graph, run.Frontiers); err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"run_id":       m.RunID,
					"path":         path,
					"events":       run.Graph.Len(),
					"edges":        run.Graph.EdgeCount(),
					"junctions":    run.Junctions,
					"order_params": m.OrderParams,
					"geometry":     m.Geometry,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", m.RunID)
			fmt.Fprintf(out, "  events: %d  edges: %d  junctions: %d\n", run.Graph.Len(), run.Graph.EdgeCount(), run.Junctions)
			printOrderParams(cmd, m.OrderParams)
			printGeometry(cmd, m.Geometry)
			fmt.Fprintf(out, "  metrics: %s\n", path)
			return nil
		},
	}

	cmd.Flags().Int("threads", 0, "Number of threads N (overrides run.threads)")
	cmd.Flags().Float64("coupling", 0, "Coupling probability n (overrides run.coupling)")
	cmd.Flags().Int("steps", 0, "Ticks to grow (overrides run.steps)")
	cmd.Flags().Int("window", 0, "Coherence window W_coh (overrides run.window)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides run.seed)")

	return cmd
}
