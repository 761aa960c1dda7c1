package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/archive"
	"github.com/bcqm-vi/spacetime/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage runs stored in the run database",
	}
	cmd.AddCommand(
		newRunsListCmd(),
		newRunsDeleteCmd(),
		newRunsExportCmd(),
		newRunsImportCmd(),
		newRunsVerifyCmd(),
	)
	return cmd
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			infos, err := runs.ListRuns(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				if infos == nil {
					infos = []store.RunInfo{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"runs":  infos,
					"count": len(infos),
				})
			}

			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored runs.")
				return nil
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stored runs (%d):\n\n", len(infos))
			for _, info := range infos {
				fmt.Fprintf(out, "  %s\n", info.RunID)
				fmt.Fprintf(out, "    N=%d n=%.3f seed=%d W_coh=%d tick=%d events=%d edges=%d\n",
					info.Threads, info.Coupling, info.Seed, info.Window,
					info.FinalTick, info.Events, info.Edges)
			}
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			if err := runs.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id> [path]",
		Short: "Export a stored run to a compressed archive",
		Long: `Export a stored run with its events, edges and frontiers.

The archive defaults to <output-dir>/<run-id>.run.gz.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			path := archive.DefaultPath(cfg.Output.Dir, args[0])
			if len(args) == 2 {
				path = args[1]
			}

			header, err := archive.Export(cmd.Context(), runs, args[0], path)
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"path":   path,
					"header": header,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s (%d events, %d edges)\n",
				header.RunID, path, header.Events, header.Edges)
			return nil
		},
	}
}

func newRunsImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import a run archive into the run database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			force, _ := cmd.Flags().GetBool("force")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer runs.Close()

			info, err := archive.Import(cmd.Context(), runs, args[0], force)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d events, %d edges)\n",
				info.RunID, info.Events, info.Edges)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Replace a stored run with the same id")
	return cmd
}

func newRunsVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <path>",
		Short: "Verify the checksum of a run archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			header, err := archive.ReadHeader(args[0])
			if err != nil {
				return err
			}
			if err := archive.Verify(args[0]); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"path":   args[0],
					"valid":  true,
					"header": header,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (run %s, created %s)\n",
				args[0], header.RunID, header.CreatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
