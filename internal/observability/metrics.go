package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricStagesTotal   = "reposcan.stages.total"
	metricStageDuration = "reposcan.stage.duration.seconds"
	metricStageErrors   = "reposcan.stage.errors.total"
	metricStagesRunning = "reposcan.stages.inflight"

	attrStageName = "stage"
	attrOutcome   = "outcome"

	outcomeFailed = "failed"
)

// durationBucketBoundaries covers 10ms to 20 minutes: reposcan stages range
// from sub-second parsing to the 15-minute vulnerability scanner timeout.
var durationBucketBoundaries = []float64{
	0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900, 1200,
}

// StageMetrics holds the OTel instruments for pipeline stage RED metrics:
// rate, errors, duration, keyed by stage name instead of request route.
type StageMetrics struct {
	stagesTotal   metric.Int64Counter
	stageDuration metric.Float64Histogram
	stageErrors   metric.Int64Counter
	stagesRunning metric.Int64UpDownCounter
}

// NewStageMetrics creates the stage metric instruments from the given meter.
func NewStageMetrics(mt metric.Meter) (*StageMetrics, error) {
	total, err := mt.Int64Counter(metricStagesTotal,
		metric.WithDescription("Total number of pipeline stages run"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStagesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	errs, err := mt.Int64Counter(metricStageErrors,
		metric.WithDescription("Total number of failed or timed-out stages"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageErrors, err)
	}

	running, err := mt.Int64UpDownCounter(metricStagesRunning,
		metric.WithDescription("Number of stages currently running"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStagesRunning, err)
	}

	return &StageMetrics{
		stagesTotal:   total,
		stageDuration: duration,
		stageErrors:   errs,
		stagesRunning: running,
	}, nil
}

// RecordStage records a completed pipeline stage with its name, outcome,
// and duration.
func (sm *StageMetrics) RecordStage(ctx context.Context, stage, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrStageName, stage),
		attribute.String(attrOutcome, outcome),
	)

	sm.stagesTotal.Add(ctx, 1, attrs)
	sm.stageDuration.Record(ctx, duration.Seconds(), attrs)

	if outcome == outcomeFailed || outcome == "timed-out" {
		sm.stageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStageName, stage)))
	}
}

// TrackRunning increments the in-flight gauge for a stage and returns a
// function to decrement it.
func (sm *StageMetrics) TrackRunning(ctx context.Context, stage string) func() {
	attrs := metric.WithAttributes(attribute.String(attrStageName, stage))
	sm.stagesRunning.Add(ctx, 1, attrs)

	return func() {
		sm.stagesRunning.Add(ctx, -1, attrs)
	}
}
