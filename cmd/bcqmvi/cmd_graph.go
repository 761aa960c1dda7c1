package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bcqm-vi/spacetime/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the active subgraph of a stored run",
		Long: `Output the active subgraph of a stored run in DOT (Graphviz) or JSON
format. Frontier events and junctions are marked.

Examples:
  bcqmvi graph --db runs.db --run-id <id>                    # DOT to stdout
  bcqmvi graph --db runs.db --run-id <id> --format json
  bcqmvi graph --db runs.db --run-id <id> -o run.dot && dot -Tsvg run.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetString("run-id")
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

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

			data, err := visualization.Render(visualization.Format(format), run.Graph, active, run.Frontiers)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write graph: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s (%d active events)\n", output, active.Len())
			return nil
		},
	}

	cmd.Flags().String("run-id", "", "Stored run identifier")
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Int("t", 0, "Tick to evaluate at (default: final tick of the run)")
	cmd.Flags().Int("window", 0, "Coherence window (default: window of the run)")
	cmd.MarkFlagRequired("run-id")

	return cmd
}
