package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	keyTraceparent = "traceparent"
	keyTracestate  = "tracestate"
)

// TraceContextStrings captures the active span as W3C header values, for
// work that is persisted now and resumed later (outbox rows).
func TraceContextStrings(ctx context.Context) (traceparent, tracestate string) {
	c := make(propagation.MapCarrier, 2)
	otel.GetTextMapPropagator().Inject(ctx, c)
	return c[keyTraceparent], c[keyTracestate]
}

// ContextWithTraceContext is the inverse of TraceContextStrings. ctx is
// returned untouched when nothing was captured.
func ContextWithTraceContext(ctx context.Context, traceparent, tracestate string) context.Context {
	if traceparent == "" {
		return ctx
	}
	c := propagation.MapCarrier{keyTraceparent: traceparent}
	if tracestate != "" {
		c[keyTracestate] = tracestate
	}
	return otel.GetTextMapPropagator().Extract(ctx, c)
}
