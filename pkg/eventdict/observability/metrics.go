package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used for all eventdict instruments.
const MeterName = "eventdict"

// MetricsRecorder records emitter metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEmit records one publish: how many listeners ran, how long it
	// took, and whether a listener failed.
	RecordEmit(ctx context.Context, path string, invoked int, duration time.Duration, err error)

	// RecordSubscription records a change in the number of listeners on an
	// event. delta is +1 for a subscribe and -1 for an unsubscribe.
	RecordSubscription(ctx context.Context, path string, delta int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	emits         metric.Int64Counter
	emitLatency   metric.Float64Histogram
	emitErrors    metric.Int64Counter
	invocations   metric.Int64Counter
	subscriptions metric.Int64UpDownCounter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily creates instruments on the global meter provider.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.GetMeterProvider())
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter(MeterName)

	emits, err := meter.Int64Counter("eventdict.emit.count",
		metric.WithDescription("Number of events emitted"),
	)
	if err != nil {
		return nil, err
	}

	emitLatency, err := meter.Float64Histogram("eventdict.emit.latency_ms",
		metric.WithDescription("Time spent delivering an event to its listeners"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	emitErrors, err := meter.Int64Counter("eventdict.emit.errors",
		metric.WithDescription("Number of emits aborted by a listener error"),
	)
	if err != nil {
		return nil, err
	}

	invocations, err := meter.Int64Counter("eventdict.listener.invocations",
		metric.WithDescription("Number of listener calls"),
	)
	if err != nil {
		return nil, err
	}

	subscriptions, err := meter.Int64UpDownCounter("eventdict.subscriptions",
		metric.WithDescription("Number of subscribed listeners"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		emits:         emits,
		emitLatency:   emitLatency,
		emitErrors:    emitErrors,
		invocations:   invocations,
		subscriptions: subscriptions,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFrom returns a MetricsRecorder bound to provider instead
// of the global one.
func NewMetricsRecorderFrom(provider metric.MeterProvider) (MetricsRecorder, error) {
	m, err := newOtelMetrics(provider)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordEmit records a publish.
func (m *otelMetrics) RecordEmit(ctx context.Context, path string, invoked int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("event.path", path))

	m.emits.Add(ctx, 1, attrs)
	m.emitLatency.Record(ctx, Milliseconds(duration), attrs)
	if invoked > 0 {
		m.invocations.Add(ctx, int64(invoked), attrs)
	}
	if err != nil {
		m.emitErrors.Add(ctx, 1, attrs)
	}
}

// RecordSubscription records a listener count change.
func (m *otelMetrics) RecordSubscription(ctx context.Context, path string, delta int64) {
	m.subscriptions.Add(ctx, delta, metric.WithAttributes(attribute.String("event.path", path)))
}
