package checkout

import (
	"log/slog"

	"github.com/iliamunaev/checkout-pipeline/internal/metrics"
	"github.com/iliamunaev/checkout-pipeline/internal/tracing"
)

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger. Nil keeps slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt metrics.Metrics) Option {
	return func(m *Machine) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracing.Tracer) Option {
	return func(m *Machine) {
		if t != nil {
			m.tracer = t
		}
	}
}

// WithFatalHandler replaces the handler invoked on a collaborator
// contract violation. The default panics. If the handler returns, the
// attempt settles as a failure.
func WithFatalHandler(fn func(error)) Option {
	return func(m *Machine) {
		if fn != nil {
			m.fatal = fn
		}
	}
}

// WithIDGenerator sets how attempt IDs are generated.
func WithIDGenerator(fn func() string) Option {
	return func(m *Machine) {
		if fn != nil {
			m.newID = fn
		}
	}
}
