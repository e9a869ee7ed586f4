// Package tracing wraps OpenTelemetry spans for checkout attempts.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for an attempt and for the collaborator calls in it.
type Tracer interface {
	// StartAttempt starts the root span of a checkout attempt.
	StartAttempt(ctx context.Context, attemptID, product string) (context.Context, Span)

	// StartStage starts a child span for one collaborator call.
	StartStage(ctx context.Context, attemptID, stage string) (context.Context, Span)
}

// Span is an active span.
type Span interface {
	End()
	SetError(err error)
	SetAttributes(attrs ...attribute.KeyValue)
}

// Config holds configuration for OTelTracer.
type Config struct {
	// ServiceName names the instrumentation scope.
	ServiceName string
	// TracerProvider is used to create the tracer. If nil, the global provider is used.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{ServiceName: "checkout"}
}

// OTelTracer implements Tracer with OpenTelemetry.
type OTelTracer struct {
	tracer trace.Tracer
}

var _ Tracer = (*OTelTracer)(nil)

// NewOTelTracer creates a tracer from cfg.
func NewOTelTracer(cfg Config) *OTelTracer {
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelTracer{tracer: tp.Tracer(cfg.ServiceName)}
}

func (t *OTelTracer) StartAttempt(ctx context.Context, attemptID, product string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, "checkout.attempt",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("checkout.attempt_id", attemptID),
			attribute.String("checkout.product", product),
		),
	)
	return ctx, &otelSpan{span: span}
}

func (t *OTelTracer) StartStage(ctx context.Context, attemptID, stage string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, "checkout."+stage,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("checkout.attempt_id", attemptID),
		),
	)
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// Noop is a Tracer that records nothing.
type Noop struct{}

var _ Tracer = Noop{}

func (Noop) StartAttempt(ctx context.Context, _, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (Noop) StartStage(ctx context.Context, _, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End()                                {}
func (noopSpan) SetError(error)                      {}
func (noopSpan) SetAttributes(...attribute.KeyValue) {}
