// Package alert defines the sink contract for threshold alerts raised by the
// telemetry pipeline. The pipeline only emits alerts; delivery belongs to the
// sink implementation.
package alert

import "log/slog"

// Common alert names emitted by the pipeline.
const (
	AlertSlowResponse        = "slow_response"
	AlertPoorLCP             = "poor_lcp"
	AlertPoorCLS             = "poor_cls"
	AlertJourneyStepSlow     = "journey_step_slow"
	AlertJourneyStepError    = "journey_step_error"
	AlertHighAbandonmentRate = "high_abandonment_rate"
)

// Sink receives named alerts with a payload. Emit must not block the caller;
// implementations own any buffering or delivery retries. The pipeline never
// inspects the outcome.
type Sink interface {
	Emit(name string, payload map[string]interface{})
}

// LogSink writes alerts to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that records alerts as warning log lines.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(name string, payload map[string]interface{}) {
	s.logger.Warn("alert", "name", name, "payload", payload)
}

// MultiSink fans an alert out to several sinks.
type MultiSink []Sink

// Emit implements Sink.
func (s MultiSink) Emit(name string, payload map[string]interface{}) {
	for _, sink := range s {
		sink.Emit(name, payload)
	}
}

// NoopSink discards alerts.
type NoopSink struct{}

// Emit implements Sink.
func (NoopSink) Emit(string, map[string]interface{}) {}
