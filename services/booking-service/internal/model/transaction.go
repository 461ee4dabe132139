package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Breakdown is the priced view of one appointment.
type Breakdown struct {
	Size         *Size           `json:"size,omitempty"`
	ServicePrice decimal.Decimal `json:"service_price"`
	AddOnsTotal  decimal.Decimal `json:"add_ons_total"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

type AddOnLine struct {
	ServiceID int64           `json:"service_id"`
	Name      string          `json:"service_name"`
	Price     decimal.Decimal `json:"price"`
}

// Transaction is the payment record captured when an appointment completes.
// ID is the uniqueness guarantee; ReferenceNumber is for receipts only.
type Transaction struct {
	ID              string          `json:"id"`
	ReferenceNumber string          `json:"reference_number"`
	AppointmentID   int64           `json:"appointment_id"`
	Branch          Branch          `json:"branch"`
	ServiceID       int64           `json:"service_id"`
	ServiceName     string          `json:"service_name"`
	AddOns          []AddOnLine     `json:"add_ons"`
	Breakdown       Breakdown       `json:"breakdown"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	Change          decimal.Decimal `json:"change"`
	PaidAt          time.Time       `json:"paid_at"`
	Status          Status          `json:"status"`
}
