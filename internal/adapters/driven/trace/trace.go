// Package trace provides TraceSink implementations: a logger-backed
// sink for verbose runs and a no-op sink for everything else.
package trace

import (
	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aska-cli/internal/logger"
)

// Ensure the sinks implement the interface.
var (
	_ driven.TraceSink = (*LoggerSink)(nil)
	_ driven.TraceSink = (*NoopSink)(nil)
)

// LoggerSink writes one verbose log line per completed stage.
type LoggerSink struct{}

// NewLoggerSink creates a logger-backed trace sink.
func NewLoggerSink() *LoggerSink {
	return &LoggerSink{}
}

// RecordSpan reports a completed stage.
func (s *LoggerSink) RecordSpan(span domain.StageSpan) {
	switch {
	case span.Err != nil:
		logger.Warn("stage %s failed after %s: %v", span.Stage, span.Duration, span.Err)
	case span.Degraded:
		logger.Info("stage %s degraded after %s", span.Stage, span.Duration)
	default:
		logger.Debug("stage %s completed in %s", span.Stage, span.Duration)
	}
}

// NoopSink discards all spans.
type NoopSink struct{}

// NewNoopSink creates a trace sink that discards everything.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// RecordSpan discards the span.
func (s *NoopSink) RecordSpan(domain.StageSpan) {}
