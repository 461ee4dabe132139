package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	tp, ts := TraceContextStrings(trace.ContextWithSpanContext(context.Background(), sc))
	if tp == "" {
		t.Fatal("expected traceparent")
	}

	restored := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), tp, ts))
	if restored.TraceID() != traceID {
		t.Fatalf("trace id mismatch: %s", restored.TraceID())
	}
}

func TestContextWithTraceContext_Empty(t *testing.T) {
	ctx := context.Background()
	if ContextWithTraceContext(ctx, "", "") != ctx {
		t.Fatal("expected same context when nothing stored")
	}
}

func TestSamplerBounds(t *testing.T) {
	if got := sampler(2).Description(); got == "" {
		t.Fatal("expected a sampler description")
	}
	if sampler(1).Description() == sampler(0).Description() {
		t.Fatal("always and never samplers should differ")
	}
}
