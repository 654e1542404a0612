package eventdict

import (
	"log/slog"

	"github.com/randalmurphal/eventdict/pkg/eventdict/config"
	"github.com/randalmurphal/eventdict/pkg/eventdict/observability"
)

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger for subscription and delivery records.
// Default: nil (no logging)
//
// Subscribe, unsubscribe and emit are logged at debug level, listener
// failures at error level.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics{}
//
// Example:
//
//	em := eventdict.NewEmitter(
//	    eventdict.WithMetrics(observability.NewMetricsRecorder()),
//	)
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Emitter) {
		if m == nil {
			m = observability.NoopMetrics{}
		}
		e.metrics = m
	}
}

// WithSpans sets the span manager. Each Emit runs inside one span.
// Default: observability.NoopSpanManager{}
func WithSpans(s observability.SpanManager) Option {
	return func(e *Emitter) {
		if s == nil {
			s = observability.NoopSpanManager{}
		}
		e.spans = s
	}
}

// OptionsFromConfig builds emitter options from a config section:
//
//	log: true      # slog.Default()
//	metrics: true  # OpenTelemetry metrics on the global meter provider
//	tracing: true  # OpenTelemetry spans on the global tracer provider
//
// Missing keys leave the corresponding feature disabled.
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if cfg.Bool("log", false) {
		opts = append(opts, WithLogger(slog.Default()))
	}
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithSpans(observability.NewSpanManager()))
	}
	return opts
}
