// Package metrics holds the OpenTelemetry instruments recorded by the voice pipeline.
//
// Callers pass a [metric.MeterProvider]; tests use an SDK provider with a
// manual reader, and the CLI uses the global provider, which is a no-op
// unless an exporter has been installed.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rbright/askit"

// Metrics holds all instruments. Safe for concurrent use.
type Metrics struct {
	// CapabilityDuration tracks provider call latency by op.
	CapabilityDuration metric.Float64Histogram
	// CapabilityRequests counts provider calls by op and status.
	CapabilityRequests metric.Int64Counter
	// CapabilityErrors counts classified failures by op and kind.
	CapabilityErrors metric.Int64Counter
	// RateLimited counts requests denied before reaching the provider.
	RateLimited metric.Int64Counter
	// AnalysisFallbacks counts unparseable analysis payloads.
	AnalysisFallbacks metric.Int64Counter

	RecordingDuration metric.Float64Histogram
	RecordingBytes    metric.Int64Histogram
	ActiveRecordings  metric.Int64UpDownCounter

	// Utterances counts finished sessions by outcome.
	Utterances metric.Int64Counter
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// New creates every instrument on the given provider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.CapabilityDuration, err = m.Float64Histogram("askit.capability.duration",
		metric.WithDescription("Latency of provider capability calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CapabilityRequests, err = m.Int64Counter("askit.capability.requests",
		metric.WithDescription("Provider capability calls by op and status."),
	); err != nil {
		return nil, err
	}
	if met.CapabilityErrors, err = m.Int64Counter("askit.capability.errors",
		metric.WithDescription("Classified capability failures by op and kind."),
	); err != nil {
		return nil, err
	}
	if met.RateLimited, err = m.Int64Counter("askit.ratelimit.denied",
		metric.WithDescription("Requests denied by the outbound request window."),
	); err != nil {
		return nil, err
	}
	if met.AnalysisFallbacks, err = m.Int64Counter("askit.analysis.fallbacks",
		metric.WithDescription("Intent analyses replaced by the general_query fallback."),
	); err != nil {
		return nil, err
	}
	if met.RecordingDuration, err = m.Float64Histogram("askit.recording.duration",
		metric.WithDescription("Length of finalized recordings."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecordingBytes, err = m.Int64Histogram("askit.recording.bytes",
		metric.WithDescription("Size of finalized recordings."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.ActiveRecordings, err = m.Int64UpDownCounter("askit.recording.active",
		metric.WithDescription("Recording sessions currently holding the microphone."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("askit.utterances",
		metric.WithDescription("Finished utterances by outcome."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level instance built on the global provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = New(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordCapability records one provider call outcome.
func (m *Metrics) RecordCapability(ctx context.Context, op string, elapsed time.Duration, err error, kind string) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CapabilityDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("op", op)))
	m.CapabilityRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status),
	))
	if err != nil {
		m.RecordError(ctx, op, kind)
	}
}

// RecordError counts one classified failure.
func (m *Metrics) RecordError(ctx context.Context, op, kind string) {
	m.CapabilityErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("kind", kind),
	))
}

func (m *Metrics) RecordRateLimited(ctx context.Context, op string) {
	m.RateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) RecordFallback(ctx context.Context) {
	m.AnalysisFallbacks.Add(ctx, 1)
}

// RecordRecording records a finalized artifact.
func (m *Metrics) RecordRecording(ctx context.Context, duration time.Duration, bytes int, mimeType string) {
	attrs := metric.WithAttributes(attribute.String("mime_type", mimeType))
	m.RecordingDuration.Record(ctx, duration.Seconds(), attrs)
	m.RecordingBytes.Record(ctx, int64(bytes), attrs)
}

func (m *Metrics) RecordUtterance(ctx context.Context, outcome string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
