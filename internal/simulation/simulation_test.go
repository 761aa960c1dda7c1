package simulation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcqm-vi/spacetime/internal/geometry"
	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/orderparam"
	"github.com/bcqm-vi/spacetime/internal/store"
	"github.com/google/go-cmp/cmp"
)

func testGrowth() GrowthConfig {
	return GrowthConfig{Threads: 4, Coupling: 0.5, Steps: 60, Window: 20, SampleEvery: 10, Seed: 7}
}

func TestGrowthConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GrowthConfig)
		wantErr string
	}{
		{"valid", func(*GrowthConfig) {}, ""},
		{"no threads", func(c *GrowthConfig) { c.Threads = 0 }, "threads"},
		{"coupling above one", func(c *GrowthConfig) { c.Coupling = 1.5 }, "coupling"},
		{"negative coupling", func(c *GrowthConfig) { c.Coupling = -0.1 }, "coupling"},
		{"negative steps", func(c *GrowthConfig) { c.Steps = -1 }, "steps"},
		{"negative window", func(c *GrowthConfig) { c.Window = -1 }, "window"},
		{"negative sample", func(c *GrowthConfig) { c.SampleEvery = -1 }, "sample_every"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testGrowth()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestGrow_Shape(t *testing.T) {
	cfg := testGrowth()
	run, err := NewGrower(cfg, orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatalf("Grow() error = %v", err)
	}

	wantEvents := cfg.Threads * (cfg.Steps + 1)
	if run.Graph.Len() != wantEvents {
		t.Errorf("events = %d, want %d", run.Graph.Len(), wantEvents)
	}
	wantEdges := cfg.Threads*cfg.Steps + run.Junctions
	if run.Graph.EdgeCount() != wantEdges {
		t.Errorf("edges = %d, want %d", run.Graph.EdgeCount(), wantEdges)
	}
	if len(run.Frontiers) != cfg.Threads {
		t.Fatalf("frontiers = %d, want %d", len(run.Frontiers), cfg.Threads)
	}
	for _, f := range run.Frontiers {
		ev, ok := run.Graph.Event(f)
		if !ok || ev.CreatedAt != cfg.Steps {
			t.Errorf("frontier %d created at %d, want %d", f, ev.CreatedAt, cfg.Steps)
		}
		if ev.Outdeg != 0 {
			t.Errorf("frontier %d has outdeg %d", f, ev.Outdeg)
		}
	}
	if len(run.Timeseries) != cfg.Steps/cfg.SampleEvery {
		t.Errorf("samples = %d, want %d", len(run.Timeseries), cfg.Steps/cfg.SampleEvery)
	}
	for i, s := range run.Timeseries {
		if s.Tick != (i+1)*cfg.SampleEvery {
			t.Errorf("sample %d at tick %d", i, s.Tick)
		}
	}
}

func TestGrow_DegreeInvariant(t *testing.T) {
	run, err := NewGrower(testGrowth(), orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	in := map[int]int{}
	out := map[int]int{}
	for _, e := range run.Graph.Edges() {
		in[e.Target]++
		out[e.Source]++
	}
	for _, ev := range run.Graph.Events() {
		if ev.Indeg != in[ev.ID] || ev.Outdeg != out[ev.ID] {
			t.Errorf("event %d: indeg %d/%d outdeg %d/%d", ev.ID, ev.Indeg, in[ev.ID], ev.Outdeg, out[ev.ID])
		}
	}
}

func TestGrow_NoCoupling(t *testing.T) {
	cfg := testGrowth()
	cfg.Coupling = 0
	run, err := NewGrower(cfg, orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Junctions != 0 {
		t.Errorf("junctions = %d, want 0", run.Junctions)
	}
	// Independent chains never merge.
	adj := run.Graph.Adjacency(run.Graph.All())
	if got := len(adj.Components()); got != cfg.Threads {
		t.Errorf("components = %d, want %d", got, cfg.Threads)
	}
}

func TestGrow_FullCoupling(t *testing.T) {
	cfg := testGrowth()
	cfg.Coupling = 1
	run, err := NewGrower(cfg, orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Junctions != cfg.Threads*cfg.Steps {
		t.Errorf("junctions = %d, want %d", run.Junctions, cfg.Threads*cfg.Steps)
	}
}

func TestGrow_SingleThreadNeverJunctions(t *testing.T) {
	cfg := GrowthConfig{Threads: 1, Coupling: 1, Steps: 10, Window: 5}
	run, err := NewGrower(cfg, orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Junctions != 0 {
		t.Errorf("junctions = %d, want 0", run.Junctions)
	}
}

func TestGrow_Deterministic(t *testing.T) {
	a, err := NewGrower(testGrowth(), orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewGrower(testGrowth(), orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Graph.Edges(), b.Graph.Edges()); diff != "" {
		t.Errorf("edges differ for same seed (-a +b):\n%s", diff)
	}
}

func TestGrow_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGrower(testGrowth(), orderparam.DefaultConfig(), nil).Grow(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Grow() error = %v, want context.Canceled", err)
	}
}

func TestGrow_InvalidConfig(t *testing.T) {
	_, err := NewGrower(GrowthConfig{}, orderparam.DefaultConfig(), nil).Grow(context.Background())
	if err == nil {
		t.Error("Grow() with zero threads succeeded")
	}
}

func TestExperiment_Run(t *testing.T) {
	ball := geometry.DefaultBallConfig()
	exp := Experiment{
		ExperimentID: "pathA",
		Variant:      "base",
		Growth:       GrowthConfig{Threads: 6, Coupling: 0.6, Steps: 80, Window: 40, SampleEvery: 20, Seed: 3},
		OrderParams:  orderparam.DefaultConfig(),
		Spectral:     geometry.DefaultConfig(),
		Ball:         &ball,
	}

	m, run, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.RunID != "pathA__base__N6__n0.600__seed3" {
		t.Errorf("RunID = %q", m.RunID)
	}
	if m.Threads != 6 || m.Coupling != 0.6 || m.Window != 40 || m.Steps != 80 {
		t.Errorf("parameters not carried: %+v", m)
	}
	if m.OrderParams.ActiveSize != run.Active(40).Len() {
		t.Errorf("ActiveSize = %d, want %d", m.OrderParams.ActiveSize, run.Active(40).Len())
	}
	if len(m.Timeseries) != 4 {
		t.Errorf("timeseries = %d samples, want 4", len(m.Timeseries))
	}
	if m.Geometry == nil {
		t.Fatal("geometry block missing")
	}
	if m.Geometry.CompSize == 0 {
		t.Error("geometry CompSize = 0")
	}
	if m.Geometry.BallGrowth == nil {
		t.Error("ball growth missing")
	}
	if !m.Geometry.DSValid && m.Geometry.Notes == "" {
		t.Error("invalid estimate without notes")
	}

	info := exp.StoreInfo(run)
	want := store.RunInfo{
		RunID:        m.RunID,
		ExperimentID: "pathA",
		Variant:      "base",
		Threads:      6,
		Coupling:     0.6,
		Seed:         3,
		Window:       40,
		FinalTick:    80,
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("StoreInfo() mismatch (-want +got):\n%s", diff)
	}
}

func TestExperiment_TooSmall(t *testing.T) {
	exp := Experiment{
		ExperimentID: "tiny",
		Variant:      "v",
		Growth:       GrowthConfig{Threads: 1, Steps: 3, Window: 10},
		OrderParams:  orderparam.DefaultConfig(),
		Spectral:     geometry.DefaultConfig(),
	}
	m, _, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if m.Geometry.DSValid {
		t.Error("4-event chain reported a valid estimate")
	}
	if m.Geometry.Notes != string(geometry.ReasonComponentTooSmall) {
		t.Errorf("Notes = %q, want component_too_small", m.Geometry.Notes)
	}
}

func TestExperiment_Trace(t *testing.T) {
	dir := t.TempDir()
	tl := logging.NewTraceLogger(dir, "debug")
	defer tl.Close()

	exp := Experiment{
		ExperimentID: "traced",
		Variant:      "v",
		Growth:       GrowthConfig{Threads: 2, Steps: 5, Window: 10},
		Spectral:     geometry.DefaultConfig(),
	}
	exp.SetLogger(nil, tl)
	if _, _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, logging.TraceFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "traced__v__N2") {
		t.Errorf("trace missing run id: %s", data)
	}
}
