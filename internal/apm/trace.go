// Package apm wires OpenTelemetry tracing for the gateway and local-node
// clients: provider setup behind an exporter choice, plus thin Tracer/Span
// wrappers so instrumented code does not depend on otel types directly.
package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts request spans against whatever provider NewTraceProvider
// registered globally.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
	// GetTracer exposes the underlying otel tracer for libraries that take
	// one directly, like the instrumented HTTP client.
	GetTracer() trace.Tracer
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer creates a named tracer, typically one per client package.
func NewTracer(name string) Tracer {
	return &otelTracer{tracer: otel.Tracer(name)}
}

func (t *otelTracer) StartSpanFromContext(
	ctx context.Context, name string, opts ...trace.SpanStartOption,
) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, NewSpan(span)
}

func (t *otelTracer) SpanFromContext(ctx context.Context) Span {
	return NewSpan(trace.SpanFromContext(ctx))
}

func (t *otelTracer) GetTracer() trace.Tracer {
	return t.tracer
}
