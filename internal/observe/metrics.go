// Package observe provides application-wide observability primitives for
// Scriven: OpenTelemetry metrics, tracing helpers, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. Tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Scriven metrics.
const meterName = "github.com/varenhold/scriven"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// SessionsStarted counts start_message calls, including imports.
	SessionsStarted metric.Int64Counter

	// EventsIngested counts pushed events. Use with attribute:
	//   attribute.String("type", ...)
	EventsIngested metric.Int64Counter

	// ProfilesFinalized counts destructive finalizations.
	ProfilesFinalized metric.Int64Counter

	// ImportsRejected counts import_events calls that failed to decode.
	ImportsRejected metric.Int64Counter

	// ResponderErrors counts failed completion requests, after fallback.
	ResponderErrors metric.Int64Counter

	// --- Gauges ---

	// SessionsActive tracks the number of live sessions in the registry.
	SessionsActive metric.Int64UpDownCounter

	// --- Latency histograms ---

	// FinalizeDuration tracks profile computation latency on finalize.
	FinalizeDuration metric.Float64Histogram

	// PreviewDuration tracks profile computation latency on preview.
	PreviewDuration metric.Float64Histogram

	// ResponderDuration tracks LLM completion latency.
	ResponderDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// analysisBuckets defines histogram bucket boundaries (in seconds) for the
// pure-CPU profile computations, which complete in microseconds.
var analysisBuckets = []float64{
	0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.025, 0.1,
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// network-bound operations: HTTP handling and responder completions.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.SessionsStarted, err = m.Int64Counter("scriven.sessions.started",
		metric.WithDescription("Number of composition sessions started."),
	); err != nil {
		return nil, err
	}
	if met.EventsIngested, err = m.Int64Counter("scriven.events.ingested",
		metric.WithDescription("Number of input events pushed into sessions."),
	); err != nil {
		return nil, err
	}
	if met.ProfilesFinalized, err = m.Int64Counter("scriven.profiles.finalized",
		metric.WithDescription("Number of sessions finalized into profiles."),
	); err != nil {
		return nil, err
	}
	if met.ImportsRejected, err = m.Int64Counter("scriven.imports.rejected",
		metric.WithDescription("Number of event-log imports rejected as malformed."),
	); err != nil {
		return nil, err
	}
	if met.ResponderErrors, err = m.Int64Counter("scriven.responder.errors",
		metric.WithDescription("Number of completion requests that failed after fallback."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.SessionsActive, err = m.Int64UpDownCounter("scriven.sessions.active",
		metric.WithDescription("Number of live sessions in the registry."),
	); err != nil {
		return nil, err
	}

	// Histograms.
	if met.FinalizeDuration, err = m.Float64Histogram("scriven.finalize.duration",
		metric.WithDescription("Latency of finalize profile computation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PreviewDuration, err = m.Float64Histogram("scriven.preview.duration",
		metric.WithDescription("Latency of preview profile computation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(analysisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ResponderDuration, err = m.Float64Histogram("scriven.responder.duration",
		metric.WithDescription("Latency of LLM completion requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("scriven.http.request.duration",
		metric.WithDescription("Latency of HTTP request processing."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}
