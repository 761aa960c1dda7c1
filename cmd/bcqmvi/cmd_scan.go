package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/scan"
	"github.com/spf13/cobra"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep threads, couplings and seeds",
		Long: `Run the configured experiment over every combination of scan.threads,
scan.couplings and scan.seeds. Jobs run in parallel; each writes its own
metrics document and a SCAN_SUMMARY.json tallies geometry successes and
failure reasons.

Examples:
  bcqmvi scan --config pathA.yaml
  bcqmvi scan --config pathA.yaml --workers 4 --db runs.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Scan.Workers, _ = cmd.Flags().GetInt("workers")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := newLogger(cmd, cfg)
			trace := logging.NewTraceLogger(cfg.Output.Dir, cfg.Logging.Level)
			defer trace.Close()

			opts := scan.Options{Workers: cfg.Scan.Workers, OutputDir: cfg.Output.Dir}
			if cfg.Output.DB != "" {
				runs, err := openRunStore(cfg)
				if err != nil {
					return err
				}
				defer runs.Close()
				opts.Store = runs
			}

			scanner := scan.New(cfg.Experiment(), opts)
			scanner.SetLogger(logger, trace)

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			grid := scan.Grid{Threads: cfg.Scan.Threads, Couplings: cfg.Scan.Couplings, Seeds: cfg.Scan.Seeds}
			sum, err := scanner.Run(ctx, grid)
			if err != nil {
				return err
			}
			summaryPath, err := scan.WriteSummary(cfg.Output.Dir, sum)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), sum)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scan complete: %d jobs, %d with valid ds\n", sum.Jobs, sum.Succeeded)
			for _, reason := range sum.FailureReasons() {
				fmt.Fprintf(out, "  %-24s %d\n", reason+":", sum.Failures[reason])
			}
			fmt.Fprintf(out, "Summary: %s\n", summaryPath)
			return nil
		},
	}

	cmd.Flags().Int("workers", 0, "Concurrent jobs (overrides scan.workers; 0 = all CPUs)")

	return cmd
}
