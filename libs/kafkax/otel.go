package kafkax

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Headers adapts a Kafka header slice to the OpenTelemetry carrier interface.
// Set replaces an existing key rather than appending a duplicate.
type Headers []kafka.Header

var _ propagation.TextMapCarrier = (*Headers)(nil)

func (h *Headers) Get(key string) string { return HeaderValue(*h, key) }

func (h *Headers) Set(key, value string) {
	for i, hd := range *h {
		if hd.Key == key {
			(*h)[i].Value = []byte(value)
			return
		}
	}
	*h = append(*h, kafka.Header{Key: key, Value: []byte(value)})
}

func (h *Headers) Keys() []string {
	out := make([]string, len(*h))
	for i, hd := range *h {
		out[i] = hd.Key
	}
	return out
}

// InjectTraceHeaders adds the span in ctx to headers.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	c := Headers(headers)
	otel.GetTextMapPropagator().Inject(ctx, &c)
	return c
}

// ExtractTraceContext restores the producer's span from a consumed message.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	c := Headers(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &c)
}
