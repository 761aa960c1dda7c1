// Package config provides unified configuration loading for bcqmvi.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/simulation"
	"gopkg.in/yaml.v3"
)

// Config contains all bcqmvi configuration settings.
type Config struct {
	// ExperimentID and Variant prefix every run id.
	ExperimentID string `json:"experiment_id" yaml:"experiment_id"`
	Variant      string `json:"variant" yaml:"variant"`

	// Run holds the growth parameters of a single run. Scan reuses everything
	// but threads, coupling and seed.
	Run simulation.GrowthConfig `json:"run" yaml:"run"`

	// Scan describes the sweep grid.
	Scan ScanConfig `json:"scan" yaml:"scan"`

	// Geometry contains the spectral-dimension and ball-growth settings.
	Geometry GeometryConfig `json:"geometry" yaml:"geometry"`

	OrderParams orderparam.Config `json:"order_params" yaml:"order_params"`

	// Output controls where metrics and graphs are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ScanConfig is the Cartesian grid of a scan.
type ScanConfig struct {
	Threads   []int     `json:"threads" yaml:"threads"`
	Couplings []float64 `json:"couplings" yaml:"couplings"`
	Seeds     []uint64  `json:"seeds" yaml:"seeds"`

	// Workers bounds concurrent jobs. Zero means one per CPU.
	Workers int `json:"workers" yaml:"workers"`
}

// GeometryConfig configures the final-tick geometry diagnostics.
type GeometryConfig struct {
	Spectral geometry.Config `json:"spectral" yaml:"spectral"`

	// BallGrowth is computed only when BallEnabled is set.
	BallEnabled bool                `json:"ball_enabled" yaml:"ball_enabled"`
	BallGrowth  geometry.BallConfig `json:"ball_growth" yaml:"ball_growth"`

	// MinR2 is the fit quality required for ds_valid.
	MinR2 float64 `json:"min_r2" yaml:"min_r2"`
}

// OutputConfig configures persistent output.
type OutputConfig struct {
	// Dir receives RUN_METRICS_*.json and the geometry trace.
	Dir string `json:"dir" yaml:"dir"`

	// DB is the SQLite event store. Empty disables graph persistence.
	DB string `json:"db" yaml:"db"`

	// Timeseries keeps per-tick samples in the metrics documents.
	Timeseries bool `json:"timeseries" yaml:"timeseries"`
}

// LoggingConfig configures bcqmvi's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the estimator trace in <output.dir>/geometry_trace.jsonl.
	// "trace" additionally logs every order-parameter sample.
	Level string `json:"level" yaml:"level"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		ExperimentID: "bcqmvi",
		Variant:      "base",
		Run: simulation.GrowthConfig{
			Threads:     8,
			Coupling:    0.4,
			Steps:       400,
			Window:      100,
			SampleEvery: 10,
			Seed:        1,
		},
		Scan: ScanConfig{
			Threads:   []int{4, 8},
			Couplings: []float64{0.2, 0.4, 0.8},
			Seeds:     []uint64{1, 2, 3},
		},
		Geometry: GeometryConfig{
			Spectral:    geometry.DefaultConfig(),
			BallEnabled: true,
			BallGrowth:  geometry.DefaultBallConfig(),
			MinR2:       metrics.DefaultMinR2,
		},
		OrderParams: orderparam.DefaultConfig(),
		Output: OutputConfig{
			Dir:        "outputs",
			Timeseries: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from path, or the defaults when path is empty,
// then applies environment variable overrides.
// Order: defaults -> config file -> environment variables
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Keys absent
// from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in paths
	config.Output.Dir = expandEnvVars(config.Output.Dir)
	config.Output.DB = expandEnvVars(config.Output.DB)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ExperimentID == "" {
		return fmt.Errorf("experiment_id must not be empty")
	}
	if strings.Contains(c.ExperimentID, "__") || strings.Contains(c.Variant, "__") {
		return fmt.Errorf("experiment_id and variant must not contain \"__\"")
	}

	if err := c.Run.Validate(); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	for _, n := range c.Scan.Threads {
		if n < 1 {
			return fmt.Errorf("scan.threads must be at least 1, got %d", n)
		}
	}
	for _, n := range c.Scan.Couplings {
		if n < 0 || n > 1 {
			return fmt.Errorf("scan.couplings must be between 0 and 1, got %f", n)
		}
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be non-negative, got %d", c.Scan.Workers)
	}

	sp := c.Geometry.Spectral
	if sp.TMax < 1 || sp.NWalkers < 1 {
		return fmt.Errorf("geometry.spectral t_max and n_walkers must be positive, got %d and %d", sp.TMax, sp.NWalkers)
	}
	if sp.FitTMin < 1 || sp.FitTMin > sp.FitTMax {
		return fmt.Errorf("geometry.spectral fit window [%d, %d] is invalid", sp.FitTMin, sp.FitTMax)
	}
	if c.Geometry.MinR2 < 0 || c.Geometry.MinR2 > 1 {
		return fmt.Errorf("geometry.min_r2 must be between 0 and 1, got %f", c.Geometry.MinR2)
	}
	if c.Geometry.BallEnabled && c.Geometry.BallGrowth.RMax < 0 {
		return fmt.Errorf("geometry.ball_growth.r_max must be non-negative, got %d", c.Geometry.BallGrowth.RMax)
	}

	if c.OrderParams.JunctionBeta <= 1 {
		return fmt.Errorf("order_params.junction_beta must be greater than 1, got %f", c.OrderParams.JunctionBeta)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// Experiment returns the single-run experiment described by c.
func (c *Config) Experiment() simulation.Experiment {
	exp := simulation.Experiment{
		ExperimentID: c.ExperimentID,
		Variant:      c.Variant,
		Growth:       c.Run,
		OrderParams:  c.OrderParams,
		Spectral:     c.Geometry.Spectral,
		MinR2:        c.Geometry.MinR2,
	}
	if !c.Output.Timeseries {
		exp.Growth.SampleEvery = 0
	}
	if c.Geometry.BallEnabled {
		ball := c.Geometry.BallGrowth
		exp.Ball = &ball
	}
	return exp
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("BCQM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("BCQM_OUTPUT_DIR"); v != "" {
		config.Output.Dir = v
	}

	if v := os.Getenv("BCQM_DB"); v != "" {
		config.Output.DB = v
	}

	if v := os.Getenv("BCQM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Scan.Workers = n
		}
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
