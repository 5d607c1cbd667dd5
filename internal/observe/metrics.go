// Package observe provides application-wide observability primitives for
// voxpaste: OpenTelemetry metrics, tracing, trace-aware logging and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. [InitProvider]
// bridges them to a Prometheus registry so that the control API can expose
// /metrics. Tests should use [NewMetrics] with their own
// [metric.MeterProvider] instead of [DefaultMetrics] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxpaste metrics.
const meterName = "github.com/MrWong99/voxpaste"

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks how long a single transcription call takes.
	STTDuration metric.Float64Histogram

	// UtteranceDuration tracks the length of the captured audio handed to
	// the transcriber, including trailing silence.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts routed transcripts. Use with attribute:
	//   attribute.String("action", "insert"|"stop"|"ignore")
	Utterances metric.Int64Counter

	// DiscardedSegments counts speech onsets that never reached the
	// confirmation threshold, and utterances dropped on errors. Use with
	// attribute:
	//   attribute.String("reason", ...)
	DiscardedSegments metric.Int64Counter

	// ProviderRequests counts provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// InsertErrors counts failed text insertions. Use with attribute:
	//   attribute.String("mode", ...)
	InsertErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions is 1 while a capture session is listening.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks control API latency. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// transcription and HTTP latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// utteranceBuckets covers spoken phrases from a single word to a long
// dictated paragraph.
var utteranceBuckets = []float64{
	0.5, 1, 2, 3, 5, 8, 13, 20, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("voxpaste.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("voxpaste.utterance.duration",
		metric.WithDescription("Length of captured utterance audio."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(utteranceBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("voxpaste.utterances",
		metric.WithDescription("Total transcribed utterances by routing action."),
	); err != nil {
		return nil, err
	}
	if met.DiscardedSegments, err = m.Int64Counter("voxpaste.segments.discarded",
		metric.WithDescription("Total speech segments discarded before insertion, by reason."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("voxpaste.provider.requests",
		metric.WithDescription("Total provider requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("voxpaste.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.InsertErrors, err = m.Int64Counter("voxpaste.insert.errors",
		metric.WithDescription("Total failed text insertions by mode."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxpaste.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxpaste.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails, which does not happen with the global provider.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest records a provider request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordUtterance records one routed transcript.
func (m *Metrics) RecordUtterance(ctx context.Context, action string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

// RecordDiscard records one discarded segment.
func (m *Metrics) RecordDiscard(ctx context.Context, reason string) {
	m.DiscardedSegments.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordInsertError records one failed insertion.
func (m *Metrics) RecordInsertError(ctx context.Context, mode string) {
	m.InsertErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}
