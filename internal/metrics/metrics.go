// Package metrics assembles and persists RUN_METRICS documents: run
// identifiers, order-parameter time series and the geometry block.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
)

// DefaultMinR2 is the fit quality below which a successful estimate is still
// reported as invalid.
const DefaultMinR2 = 0.9

// filePrefix names metrics files on disk.
const filePrefix = "RUN_METRICS_"

// TickSample is the order-parameter snapshot at one tick.
type TickSample struct {
	Tick int `json:"t"`
	orderparam.Snapshot
}

// Geometry is the geometry block of a metrics document.
type Geometry struct {
	CompSize     int      `json:"comp_size"`
	CompFraction float64  `json:"comp_fraction"`
	PlateauEst   *float64 `json:"plateau_est"`
	DSEst        *float64 `json:"ds_est"`
	DSValid      bool     `json:"ds_valid"`
	R2           *float64 `json:"r2"`
	Slope        *float64 `json:"slope,omitempty"`
	FitTMin      int      `json:"fit_t_min"`
	FitTMax      int      `json:"fit_t_max"`
	TMax         int      `json:"t_max"`
	NWalkers     int      `json:"n_walkers"`
	Notes        string   `json:"notes"`

	P0Downsample [][2]float64         `json:"P0_downsample,omitempty"`
	BallGrowth   *geometry.BallResult `json:"ball_growth,omitempty"`
}

// RunMetrics is one run's metrics document.
type RunMetrics struct {
	RunID        string  `json:"run_id"`
	ExperimentID string  `json:"experiment_id"`
	Variant      string  `json:"variant"`
	Threads      int     `json:"N"`
	Coupling     float64 `json:"n"`
	Seed         uint64  `json:"seed"`
	Window       int     `json:"W_coh"`
	Steps        int     `json:"steps"`

	OrderParams orderparam.Snapshot `json:"order_params"`
	Timeseries  []TickSample        `json:"timeseries,omitempty"`
	Geometry    *Geometry           `json:"geometry,omitempty"`
}

// RunID formats the canonical run identifier.
func RunID(experiment, variant string, threads int, coupling float64, seed uint64) string {
	return fmt.Sprintf("%s__%s__N%d__n%.3f__seed%d", experiment, variant, threads, coupling, seed)
}

// NewGeometry converts an estimator result into a geometry block. The
// estimate is valid when it succeeded with r2 of at least minR2. ball may be
// nil.
func NewGeometry(res geometry.Result, ball *geometry.BallResult, minR2 float64) *Geometry {
	g := &Geometry{
		CompSize:     res.CompSize,
		CompFraction: res.CompFraction,
		DSEst:        res.DSEst,
		R2:           res.R2,
		Slope:        res.Slope,
		FitTMin:      res.FitTMin,
		FitTMax:      res.FitTMax,
		TMax:         res.TMax,
		NWalkers:     res.NWalkers,
		P0Downsample: geometry.Downsample(res.ReturnProbs),
		BallGrowth:   ball,
	}
	if p, ok := geometry.PlateauEstimate(res.ReturnProbs, res.FitTMax); ok {
		g.PlateauEst = &p
	}

	switch {
	case !res.OK():
		g.Notes = string(res.Reason)
	case res.R2 != nil && *res.R2 < minR2:
		g.Notes = fmt.Sprintf("r2 %.3f below %.3f", *res.R2, minR2)
	default:
		g.DSValid = true
	}
	return g
}

// FileName returns the metrics file name for runID.
func FileName(runID string) string {
	return filePrefix + runID + ".json"
}

// Write stores m as indented JSON in dir and returns the file path.
func Write(dir string, m RunMetrics) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create metrics dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metrics %s: %w", m.RunID, err)
	}
	path := filepath.Join(dir, FileName(m.RunID))
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write metrics %s: %w", path, err)
	}
	return path, nil
}

// Load reads a metrics document. If path is a directory, the first
// RUN_METRICS_*.json in lexical order is read.
func Load(path string) (RunMetrics, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return RunMetrics{}, "", fmt.Errorf("stat metrics path: %w", err)
	}
	if info.IsDir() {
		files, err := List(path)
		if err != nil {
			return RunMetrics{}, "", err
		}
		if len(files) == 0 {
			return RunMetrics{}, "", fmt.Errorf("no %s*.json in %s", filePrefix, path)
		}
		path = files[0]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RunMetrics{}, "", fmt.Errorf("read metrics: %w", err)
	}
	var m RunMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		return RunMetrics{}, "", fmt.Errorf("parse metrics %s: %w", path, err)
	}
	return m, path, nil
}

// List returns the metrics files in dir in lexical order.
func List(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
