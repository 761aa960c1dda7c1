// Package scan sweeps an experiment over a grid of thread counts, couplings
// and seeds. Jobs are independent and run with bounded concurrency; each job
// owns its graph, so no state is shared between workers except the optional
// run store and trace logger, which are safe for concurrent use.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bcqm-vi/spacetime/internal/logging"
	"github.com/bcqm-vi/spacetime/internal/metrics"
	"github.com/bcqm-vi/spacetime/internal/simulation"
	"github.com/bcqm-vi/spacetime/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// SummaryFile is the name of the scan summary written next to the metrics.
const SummaryFile = "SCAN_SUMMARY.json"

// ReasonLowR2 labels estimates that succeeded with a fit below the r2 floor.
const ReasonLowR2 = "low_r2"

// Grid is the Cartesian product swept by a scan.
type Grid struct {
	Threads   []int
	Couplings []float64
	Seeds     []uint64
}

// Job is one grid point.
type Job struct {
	Index    int
	Threads  int
	Coupling float64
	Seed     uint64
}

// Jobs expands the grid with seeds varying fastest.
func (g Grid) Jobs() []Job {
	jobs := make([]Job, 0, len(g.Threads)*len(g.Couplings)*len(g.Seeds))
	for _, n := range g.Threads {
		for _, c := range g.Couplings {
			for _, s := range g.Seeds {
				jobs = append(jobs, Job{Index: len(jobs), Threads: n, Coupling: c, Seed: s})
			}
		}
	}
	return jobs
}

// JobResult is the outcome of one job.
type JobResult struct {
	RunID   string   `json:"run_id"`
	DSEst   *float64 `json:"ds_est"`
	DSValid bool     `json:"ds_valid"`
	Reason  string   `json:"reason,omitempty"`
	Path    string   `json:"path,omitempty"`
}

// Summary aggregates a scan.
type Summary struct {
	Jobs      int            `json:"jobs"`
	Succeeded int            `json:"succeeded"`
	Failures  map[string]int `json:"failures"`

	// Results are in job order regardless of completion order.
	Results []JobResult `json:"results"`
}

// Options configures a Scanner.
type Options struct {
	// Workers bounds concurrent jobs. Zero or negative uses runtime.NumCPU.
	Workers int

	// OutputDir receives one RUN_METRICS file per job. Empty skips writing.
	OutputDir string

	// Store persists every grown graph when non-nil.
	Store store.RunStore
}

// Scanner runs a template experiment over a grid.
type Scanner struct {
	template simulation.Experiment
	opts     Options

	logger *slog.Logger
	trace  *logging.TraceLogger
}

// New creates a scanner. Threads, coupling and seed of template are
// overridden per job; everything else is shared.
func New(template simulation.Experiment, opts Options) *Scanner {
	return &Scanner{template: template, opts: opts, logger: logging.Discard()}
}

// SetLogger attaches an operational logger and an optional estimator trace.
func (s *Scanner) SetLogger(logger *slog.Logger, trace *logging.TraceLogger) {
	if logger == nil {
		logger = logging.Discard()
	}
	s.logger = logger
	s.trace = trace
}

// Run executes every job of grid. The first job error cancels the remaining
// jobs; estimation failures are not errors and are tallied in the summary.
func (s *Scanner) Run(ctx context.Context, grid Grid) (Summary, error) {
	jobs := grid.Jobs()
	results := make([]JobResult, len(jobs))

	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	s.logger.Info("scan started", "jobs", len(jobs), "workers", workers)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			res, err := s.runJob(ctx, job)
			if err != nil {
				return err
			}
			results[job.Index] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("scan: %w", err)
	}

	sum := summarize(results)
	s.logger.Info("scan finished", "jobs", sum.Jobs, "succeeded", sum.Succeeded)
	return sum, nil
}

func (s *Scanner) runJob(ctx context.Context, job Job) (JobResult, error) {
	exp := s.template
	exp.Growth.Threads = job.Threads
	exp.Growth.Coupling = job.Coupling
	exp.Growth.Seed = job.Seed
	exp.SetLogger(s.logger, s.trace)
	runID := exp.RunID()

	ctx, span := tracer.Start(ctx, "scan.job", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("job.index", job.Index),
	))
	defer span.End()

	start := time.Now()
	m, run, err := exp.Run(ctx)
	if err != nil {
		recordJobError(span, err)
		return JobResult{}, err
	}

	res := JobResult{RunID: runID, DSEst: m.Geometry.DSEst, DSValid: m.Geometry.DSValid}
	if !res.DSValid {
		res.Reason = failureReason(m.Geometry)
	}
	annotateEstimate(span, res)

	if s.opts.OutputDir != "" {
		path, err := metrics.Write(s.opts.OutputDir, m)
		if err != nil {
			recordJobError(span, err)
			return JobResult{}, err
		}
		res.Path = path
	}

	if s.opts.Store != nil {
		info := exp.StoreInfo(run)
		if err := s.opts.Store.SaveRun(ctx, info, run.Graph, run.Frontiers); err != nil {
			err = fmt.Errorf("save run %s: %w", runID, err)
			recordJobError(span, err)
			return JobResult{}, err
		}
	}

	measureJob(ctx, exp.ExperimentID, res.Reason, time.Since(start))
	s.logger.Debug("scan job done", "run_id", runID, "ds_valid", res.DSValid, "reason", res.Reason)
	return res, nil
}

// annotateEstimate records the estimate outcome on the job span. An invalid
// estimate is a normal result, so the span status is left unset.
func annotateEstimate(span trace.Span, res JobResult) {
	span.SetAttributes(attribute.Bool("job.ds_valid", res.DSValid))
	if res.Reason != "" {
		span.SetAttributes(attribute.String("job."+attrReason, res.Reason))
	}
}

// recordJobError marks the job span as failed.
func recordJobError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// failureReason names why geo is not valid: the estimator reason when no
// estimate was produced, otherwise ReasonLowR2.
func failureReason(geo *metrics.Geometry) string {
	if geo.DSEst == nil {
		return geo.Notes
	}
	return ReasonLowR2
}

func summarize(results []JobResult) Summary {
	sum := Summary{Jobs: len(results), Failures: map[string]int{}, Results: results}
	for _, r := range results {
		if r.DSValid {
			sum.Succeeded++
		} else {
			sum.Failures[r.Reason]++
		}
	}
	return sum
}

// Paths returns the written metrics paths in job order.
func (s Summary) Paths() []string {
	var paths []string
	for _, r := range s.Results {
		if r.Path != "" {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

// FailureReasons returns the failure reasons sorted by name.
func (s Summary) FailureReasons() []string {
	reasons := make([]string, 0, len(s.Failures))
	for r := range s.Failures {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}

// WriteSummary stores sum as dir/SCAN_SUMMARY.json and returns the path.
func WriteSummary(dir string, sum Summary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
