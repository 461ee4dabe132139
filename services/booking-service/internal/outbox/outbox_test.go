package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/chonkyweb/petcare/libs/kafkax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

func TestAppointmentEvent(t *testing.T) {
	evt, err := AppointmentEvent(42, EventAppointmentBooked, map[string]any{"branch": "Matina"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.AggregateID != "42" || evt.AggregateType != "appointment" {
		t.Fatalf("unexpected event %+v", evt)
	}
	var body map[string]string
	if err := json.Unmarshal(evt.Payload, &body); err != nil || body["branch"] != "Matina" {
		t.Fatalf("unexpected payload %s", evt.Payload)
	}
}

func TestMessageCarriesHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	rec := Record{
		ID:          1,
		EventID:     "evt-1",
		AggregateID: "42",
		EventType:   EventAppointmentCompleted,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := Message(context.Background(), rec)
	if msg.Topic != EventAppointmentCompleted || string(msg.Key) != "42" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" {
		t.Fatal("missing event id header")
	}
	if kafkax.HeaderValue(msg.Headers, "traceparent") != rec.Traceparent {
		t.Fatalf("trace context not restored: %v", msg.Headers)
	}
}
