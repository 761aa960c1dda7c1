package main

import (
	"fmt"

	"github.com/bcqm-vi/spacetime/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve geometry tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout that exposes the
runs in the run database to MCP clients.

Tools:
  geometry_list_runs           List stored runs
  geometry_order_params        Order parameters of a run's active set
  geometry_spectral_dimension  Random-walk spectral dimension estimate
  geometry_ball_growth         Mean BFS ball size per radius
  geometry_graph               Active subgraph as DOT or JSON

Every call is appended to mcp_audit.jsonl in the audit directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			auditDir, _ := cmd.Flags().GetString("audit-dir")
			if !cmd.Flags().Changed("audit-dir") {
				auditDir = cfg.Output.Dir
			}

			runs, err := openRunStore(cfg)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:        "bcqmvi",
				Version:     version,
				Store:       runs,
				AuditDir:    auditDir,
				Spectral:    cfg.Geometry.Spectral,
				Ball:        cfg.Geometry.BallGrowth,
				OrderParams: cfg.OrderParams,
				MinR2:       &cfg.Geometry.MinR2,
				Logger:      newLogger(cmd, cfg),
			})
			if err != nil {
				runs.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			// Run closes the server and its store.
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().String("audit-dir", "", "Directory for mcp_audit.jsonl (default: output dir; empty disables)")
	return cmd
}
