package apm

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span is the tracing surface used around gateway and local-node requests.
// It narrows trace.Span to what probe and upload instrumentation needs.
type Span interface {
	SetAttributes(values ...attribute.KeyValue)
	AddEvent(name string, options ...trace.EventOption)
	RecordError(err error, options ...trace.EventOption)
	// NoticeError records err and marks the span failed in one call, for
	// paths where a request error ends the span immediately.
	NoticeError(err error)
	End(options ...trace.SpanEndOption)
	IsRecording() bool
	SpanContext() trace.SpanContext
}

type requestSpan struct {
	span trace.Span
}

// NewSpan wraps an otel span.
func NewSpan(span trace.Span) Span {
	return &requestSpan{span: span}
}

func (s *requestSpan) SetAttributes(values ...attribute.KeyValue) {
	s.span.SetAttributes(values...)
}

func (s *requestSpan) AddEvent(name string, options ...trace.EventOption) {
	s.span.AddEvent(name, options...)
}

func (s *requestSpan) RecordError(err error, options ...trace.EventOption) {
	s.span.RecordError(err, options...)
}

func (s *requestSpan) NoticeError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *requestSpan) End(options ...trace.SpanEndOption) {
	s.span.End(options...)
}

func (s *requestSpan) IsRecording() bool {
	return s.span.IsRecording()
}

func (s *requestSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}
