package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/bcqm-vi/spacetime/internal/config"
	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/store"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bcqmvi",
		Short: "Event-graph growth and emergent-geometry diagnostics",
		Long: `bcqmvi grows coupled-thread event graphs and measures the geometry
of their active sets: order parameters, spectral dimension from random-walk
return probabilities, and ball growth.

Runs are written as RUN_METRICS_<run_id>.json documents and, when a
database is configured, persisted for later inspection.`,
		SilenceUsage: true,
	}

	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newScanCmd(),
		newGeometryCmd(),
		newGraphCmd(),
		newRunsCmd(),
		newResultsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().String("db", "", "Path to the SQLite run database (overrides output.db)")
	cmd.PersistentFlags().String("output-dir", "", "Directory for metrics and traces (overrides output.dir)")
	cmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides logging.level)")
}

// loadConfig loads the config file named by --config and applies the global
// flag overrides on top of the environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("db") {
		cfg.Output.DB, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.Output.Dir, _ = cmd.Flags().GetString("output-dir")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, nil
}

// newLogger writes operational logs to stderr so stdout stays parseable.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
}

// openRunStore opens the configured run database.
func openRunStore(cfg *config.Config) (*store.SQLiteEventStore, error) {
	if cfg.Output.DB == "" {
		return nil, errors.New("no run database configured (use --db or output.db)")
	}
	s, err := store.NewSQLiteEventStore(cfg.Output.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}
	return s, nil
}

// signalContext returns a context cancelled on the first shutdown signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
