package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/google/go-cmp/cmp"
)

func ptr(f float64) *float64 { return &f }

func TestRunID(t *testing.T) {
	got := RunID("pathA", "glue_on", 8, 0.4, 56791)
	want := "pathA__glue_on__N8__n0.400__seed56791"
	if got != want {
		t.Errorf("RunID() = %q, want %q", got, want)
	}
}

func TestNewGeometry_Valid(t *testing.T) {
	res := geometry.Result{
		DSEst:        ptr(1.9),
		Slope:        ptr(-0.95),
		R2:           ptr(0.97),
		FitTMin:      5,
		FitTMax:      30,
		TMax:         32,
		NWalkers:     300,
		CompSize:     400,
		CompFraction: 0.8,
		ReturnProbs:  make([]float64, 32),
	}
	res.ReturnProbs[30] = 0.25
	res.ReturnProbs[31] = 0.75

	g := NewGeometry(res, nil, DefaultMinR2)
	if !g.DSValid {
		t.Errorf("DSValid = false, notes %q", g.Notes)
	}
	if g.Notes != "" {
		t.Errorf("Notes = %q, want empty", g.Notes)
	}
	if g.PlateauEst == nil || *g.PlateauEst != 0.5 {
		t.Errorf("PlateauEst = %v, want 0.5", g.PlateauEst)
	}
	if len(g.P0Downsample) == 0 {
		t.Error("P0Downsample is empty")
	}
}

func TestNewGeometry_PoorFit(t *testing.T) {
	res := geometry.Result{DSEst: ptr(3.2), R2: ptr(0.5), CompSize: 50}
	g := NewGeometry(res, nil, DefaultMinR2)
	if g.DSValid {
		t.Error("DSValid = true for r2 0.5")
	}
	if !strings.Contains(g.Notes, "r2") {
		t.Errorf("Notes = %q, want r2 rejection", g.Notes)
	}
	if g.DSEst == nil || *g.DSEst != 3.2 {
		t.Error("DSEst dropped for poor fit")
	}
}

func TestNewGeometry_Failure(t *testing.T) {
	res := geometry.Result{Reason: geometry.ReasonComponentTooSmall, CompSize: 7}
	ball := &geometry.BallResult{CompSize: 7, Reason: geometry.ReasonComponentTooSmall}

	g := NewGeometry(res, ball, DefaultMinR2)
	if g.DSValid || g.DSEst != nil {
		t.Error("failed estimate reported as valid")
	}
	if g.Notes != "component_too_small" {
		t.Errorf("Notes = %q, want component_too_small", g.Notes)
	}
	if g.CompSize != 7 || g.BallGrowth != ball {
		t.Error("partial diagnostics not carried")
	}
	if g.PlateauEst != nil {
		t.Error("PlateauEst set without a return curve")
	}
}

func TestWriteLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	m := RunMetrics{
		RunID:        RunID("exp", "base", 4, 0.8, 1),
		ExperimentID: "exp",
		Variant:      "base",
		Threads:      4,
		Coupling:     0.8,
		Seed:         1,
		Window:       100,
		Steps:        200,
		OrderParams:  orderparam.Snapshot{ActiveSize: 400, SPerc: 1},
		Timeseries: []TickSample{
			{Tick: 10, Snapshot: orderparam.Snapshot{ActiveSize: 40, MaxIndegree: 2}},
		},
		Geometry: NewGeometry(geometry.Result{Reason: geometry.ReasonNoNeighbours, CompSize: 1}, nil, DefaultMinR2),
	}

	path, err := Write(dir, m)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "RUN_METRICS_exp__base__N4__n0.800__seed1.json" {
		t.Errorf("Write() path = %s", path)
	}

	got, gotPath, err := Load(dir)
	if err != nil {
		t.Fatalf("Load(dir) error = %v", err)
	}
	if gotPath != path {
		t.Errorf("Load(dir) path = %s, want %s", gotPath, path)
	}
	if diff := cmp.Diff(m, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_GeometryFieldNames(t *testing.T) {
	dir := t.TempDir()
	m := RunMetrics{
		RunID:    "r",
		Geometry: NewGeometry(geometry.Result{DSEst: ptr(2), R2: ptr(0.99), ReturnProbs: []float64{0.5, 0.25}}, nil, DefaultMinR2),
	}
	path, err := Write(dir, m)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	geo, ok := doc["geometry"].(map[string]any)
	if !ok {
		t.Fatalf("geometry block missing: %s", data)
	}
	for _, key := range []string{"comp_size", "ds_est", "ds_valid", "r2", "notes", "P0_downsample"} {
		if _, ok := geo[key]; !ok {
			t.Errorf("geometry.%s missing", key)
		}
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	if _, _, err := Load(t.TempDir()); err == nil {
		t.Error("Load() on empty dir succeeded")
	}
}
