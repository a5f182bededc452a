// Package observe provides OpenTelemetry metrics, tracing and HTTP middleware
// for the analysis service.
//
// Metrics are exported through a Prometheus bridge set up by [InitProvider].
// Tests should build a [Metrics] with [NewMetrics] and their own
// [metric.MeterProvider] instead of using [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/yassiners/audio-nuit-dinfo"

// Metrics holds the metric instruments of the service.
type Metrics struct {
	// PipelineDuration tracks end-to-end analysis latency.
	PipelineDuration metric.Float64Histogram

	// StageDuration tracks latency per pipeline stage. Attribute: stage.
	StageDuration metric.Float64Histogram

	// Analyses counts finished analyses. Attributes: completeness, alert.
	Analyses metric.Int64Counter

	// SemanticErrors counts failed or timed out model calls.
	SemanticErrors metric.Int64Counter

	// DecodeErrors counts recordings that could not be decoded.
	DecodeErrors metric.Int64Counter

	// AudioSeconds accumulates the duration of analyzed audio.
	AudioSeconds metric.Float64Counter

	// HTTPRequestDuration tracks HTTP latency. Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// Analysis latencies are dominated by the model call, hence the long tail.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates all instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PipelineDuration, err = m.Float64Histogram("audio.pipeline.duration",
		metric.WithDescription("End-to-end latency of a recording analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("audio.pipeline.stage.duration",
		metric.WithDescription("Latency of a single pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Analyses, err = m.Int64Counter("audio.analyses",
		metric.WithDescription("Finished analyses by completeness and alert state."),
	); err != nil {
		return nil, err
	}
	if met.SemanticErrors, err = m.Int64Counter("audio.semantic.errors",
		metric.WithDescription("Model calls that failed or timed out."),
	); err != nil {
		return nil, err
	}
	if met.DecodeErrors, err = m.Int64Counter("audio.decode.errors",
		metric.WithDescription("Recordings that could not be decoded."),
	); err != nil {
		return nil, err
	}
	if met.AudioSeconds, err = m.Float64Counter("audio.analyzed.seconds",
		metric.WithDescription("Total duration of analyzed audio."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("audio.http.request.duration",
		metric.WithDescription("HTTP request latency by method, path and status."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance bound to the global
// meter provider. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordAnalysis records a finished analysis.
func (m *Metrics) RecordAnalysis(ctx context.Context, d time.Duration, audioSeconds float64, completeness, alert string) {
	m.PipelineDuration.Record(ctx, d.Seconds())
	m.AudioSeconds.Add(ctx, audioSeconds)
	m.Analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("completeness", completeness),
		attribute.String("alert", alert),
	))
}

// RecordSemanticError counts a failed model call. Attribute: reason.
func (m *Metrics) RecordSemanticError(ctx context.Context, reason string) {
	m.SemanticErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordDecodeError counts a recording that could not be decoded.
func (m *Metrics) RecordDecodeError(ctx context.Context) {
	m.DecodeErrors.Add(ctx, 1)
}
