package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newTestRootCmd creates a root command with the global flags, for testing.
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bcqmvi",
		SilenceUsage: true,
	}
	addGlobalFlags(rootCmd)
	return rootCmd
}

// isolateEnv clears the BCQM_* overrides so a developer's environment
// cannot leak into command tests.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BCQM_LOG_LEVEL", "BCQM_OUTPUT_DIR", "BCQM_DB", "BCQM_WORKERS"} {
		t.Setenv(k, "")
	}
}

// execute runs sub under a fresh root and returns its stdout.
func execute(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(sub)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func decodeJSON(t *testing.T, s string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, s)
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	rootCmd := newRootCmd()
	want := []string{"version", "run", "scan", "geometry", "graph", "runs", "results", "config", "mcp-server"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"json", "config", "db", "output-dir", "log-level"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("global flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, newVersionCmd(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "bcqmvi version "+version) {
		t.Errorf("output = %q", out)
	}

	out, err = execute(t, newVersionCmd(), "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]string
	decodeJSON(t, out, &got)
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "exp.yaml")
	if err := os.WriteFile(path, []byte("experiment_id: pathA\noutput:\n  dir: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rootCmd := newTestRootCmd()
	var loaded bool
	rootCmd.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			loaded = true
			if cfg.ExperimentID != "pathA" {
				t.Errorf("ExperimentID = %q, want pathA", cfg.ExperimentID)
			}
			if cfg.Output.Dir != "from-flag" {
				t.Errorf("Output.Dir = %q, want from-flag", cfg.Output.Dir)
			}
			if cfg.Output.DB != "x.db" || cfg.Logging.Level != "debug" {
				t.Errorf("db/log level = %q/%q", cfg.Output.DB, cfg.Logging.Level)
			}
			return nil
		},
	})
	rootCmd.SetArgs([]string{"probe", "--config", path, "--output-dir", "from-flag", "--db", "x.db", "--log-level", "debug"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !loaded {
		t.Error("probe command did not run")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, newRunCmd(), "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("error = %v, want config load failure", err)
	}
}

func TestOpenRunStore_NoDatabase(t *testing.T) {
	isolateEnv(t)
	_, err := execute(t, newRunsCmd(), "runs", "list")
	if err == nil || !strings.Contains(err.Error(), "no run database configured") {
		t.Errorf("error = %v, want missing database error", err)
	}
}

func TestFormatOptional(t *testing.T) {
	v := 1.23456
	if got := formatOptional(&v, "%.2f"); got != "1.23" {
		t.Errorf("formatOptional = %q", got)
	}
	if got := formatOptional(nil, "%.2f"); got != "n/a" {
		t.Errorf("formatOptional(nil) = %q", got)
	}
}
