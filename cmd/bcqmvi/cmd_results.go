package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/spf13/cobra"
)

// resultRow is one line of the results listing.
type resultRow struct {
	RunID    string   `json:"run_id"`
	Threads  int      `json:"N"`
	Coupling float64  `json:"n"`
	Seed     uint64   `json:"seed"`
	DSEst    *float64 `json:"ds_est"`
	DSValid  bool     `json:"ds_valid"`
	SPerc    float64  `json:"S_perc"`
	Notes    string   `json:"notes,omitempty"`
	Path     string   `json:"path"`
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results [dir]",
		Short: "Summarize metrics documents in an output directory",
		Long: `Read every RUN_METRICS_*.json in the output directory (or dir) and print
one line per run with its spectral-dimension estimate.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dir := cfg.Output.Dir
			if len(args) == 1 {
				dir = args[0]
			}

			files, err := metrics.List(dir)
			if err != nil {
				return err
			}
			rows := make([]resultRow, 0, len(files))
			for _, f := range files {
				m, path, err := metrics.Load(f)
				if err != nil {
					return err
				}
				row := resultRow{
					RunID:    m.RunID,
					Threads:  m.Threads,
					Coupling: m.Coupling,
					Seed:     m.Seed,
					SPerc:    m.OrderParams.SPerc,
					Path:     path,
				}
				if m.Geometry != nil {
					row.DSEst = m.Geometry.DSEst
					row.DSValid = m.Geometry.DSValid
					row.Notes = m.Geometry.Notes
				}
				rows = append(rows, row)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"results": rows,
					"count":   len(rows),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No metrics documents in %s.\n", dir)
				return nil
			}
			for _, r := range rows {
				status := "valid"
				if !r.DSValid {
					status = "invalid: " + r.Notes
				}
				fmt.Fprintf(out, "%s  ds=%s  S_perc=%.3f  (%s)\n", r.RunID, formatOptional(r.DSEst, "%.3f"), r.SPerc, status)
			}
			return nil
		},
	}
}
