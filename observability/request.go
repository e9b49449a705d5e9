package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestScope tracks one HTTP request across its span and metrics.
type RequestScope struct {
	Service   string
	Method    string
	Route     string
	RequestID string
	Start     time.Time

	metrics *Metrics
	tracer  trace.Tracer
	span    trace.Span
}

// NewRequestScope creates a scope. A nil metrics skips metric recording;
// a nil tracer uses the global provider.
func NewRequestScope(tracer trace.Tracer, metrics *Metrics, service, method, route, requestID string) *RequestScope {
	if tracer == nil {
		tracer = Tracer(TracerName)
	}
	return &RequestScope{
		Service:   service,
		Method:    method,
		Route:     route,
		RequestID: requestID,
		Start:     time.Now(),
		metrics:   metrics,
		tracer:    tracer,
	}
}

// Begin starts the server span named "<method> <route>".
func (s *RequestScope) Begin(ctx context.Context) context.Context {
	ctx, s.span = s.tracer.Start(ctx, s.Method+" "+s.Route,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrServiceName, s.Service),
			attribute.String(AttrMethod, s.Method),
			attribute.String(AttrRoute, s.Route),
			attribute.String(AttrRequestID, s.RequestID),
		),
	)
	if s.metrics != nil {
		s.metrics.RecordRequestStart(ctx)
	}
	return ctx
}

// End finishes the span and records the request. errCode is the
// application error code surfaced to the client, if any.
func (s *RequestScope) End(ctx context.Context, status int, errCode string) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(attribute.Int(AttrStatusCode, status))
	if errCode != "" {
		s.span.SetAttributes(attribute.String(AttrErrorCode, errCode))
	}
	if status >= 500 {
		s.span.SetStatus(codes.Error, errCode)
	}
	s.span.End()

	if s.metrics != nil {
		s.metrics.RecordRequestEnd(ctx, s.Method, s.Route, status, s.Duration())
	}
}

// Duration returns the elapsed time since the scope was created.
func (s *RequestScope) Duration() time.Duration {
	return time.Since(s.Start)
}
