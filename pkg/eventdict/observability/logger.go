// Package observability provides logging, metrics and tracing helpers for
// the eventdict emitter.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with event.id and event.path fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, d.ID(), d.Path())
//	enriched.Info("replaying") // includes event.id, event.path
func EnrichLogger(logger *slog.Logger, eventID, path string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event.id", eventID),
		slog.String("event.path", path),
	)
}

// LogSubscribe logs a listener being added to an event.
func LogSubscribe(logger *slog.Logger, path string, listeners int) {
	if logger == nil {
		return
	}
	logger.Debug("listener subscribed",
		slog.String("event.path", path),
		slog.Int("listeners", listeners),
	)
}

// LogUnsubscribe logs a listener being removed from an event.
func LogUnsubscribe(logger *slog.Logger, path string, listeners int) {
	if logger == nil {
		return
	}
	logger.Debug("listener unsubscribed",
		slog.String("event.path", path),
		slog.Int("listeners", listeners),
	)
}

// LogEmit logs a completed publish.
func LogEmit(logger *slog.Logger, path string, invoked int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event emitted",
		slog.String("event.path", path),
		slog.Int("invoked", invoked),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogListenerError logs a listener failure. Delivery of the event stopped at
// this listener. The logger is expected to carry the event fields; see
// EnrichLogger.
func LogListenerError(logger *slog.Logger, index int, err error) {
	if logger == nil {
		return
	}
	logger.Error("listener failed",
		slog.Int("listener", index),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds for log fields and
// histograms.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
