package scan

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/bcqm-vi/spacetime/internal/scan")
var meter = otel.Meter("github.com/bcqm-vi/spacetime/internal/scan")

const (
	// attrExperiment associates each record with the experiment id so scans of
	// different experiments can be told apart.
	attrExperiment = "experiment"

	// attrReason labels failed estimates with the failure reason.
	attrReason = "reason"
)

var (
	// jobDuration measures one job: growth, diagnostics and persistence.
	jobDuration metric.Float64Histogram

	// estimateFailures counts jobs whose spectral estimate is not valid.
	estimateFailures metric.Int64Counter
)

func init() {
	var err error
	jobDuration, err = meter.Float64Histogram(
		"scan.job.duration",
		metric.WithDescription("The duration of a single scan job, including growth, geometry diagnostics and persistence."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("scan: failed to init 'scan.job.duration' instrument")
	}

	estimateFailures, err = meter.Int64Counter(
		"scan.estimate.failures",
		metric.WithDescription("The number of scan jobs without a valid spectral-dimension estimate."),
	)
	if err != nil {
		panic("scan: failed to init 'scan.estimate.failures' instrument")
	}
}

// measureJob records the job duration and, when reason is non-empty, counts
// an estimate failure labelled with it.
func measureJob(ctx context.Context, experiment, reason string, d time.Duration) {
	attrs := attribute.NewSet(attribute.String(attrExperiment, experiment))
	jobDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributeSet(attrs))

	if reason != "" {
		failAttrs := attribute.NewSet(
			attribute.String(attrExperiment, experiment),
			attribute.String(attrReason, reason),
		)
		estimateFailures.Add(ctx, 1, metric.WithAttributeSet(failAttrs))
	}
}
