package outbox

import (
	"encoding/json"
	"strconv"
)

const (
	EventAppointmentBooked        = "booking.appointment.booked.v1"
	EventAppointmentCancelled     = "booking.appointment.cancelled.v1"
	EventAppointmentStatusChanged = "booking.appointment.status_changed.v1"
	EventAppointmentCompleted     = "booking.appointment.completed.v1"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentEvent marshals payload into an event keyed by the appointment id.
func AppointmentEvent(appointmentID int64, eventType string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(appointmentID, 10),
		EventType:     eventType,
		Payload:       body,
	}, nil
}
