// Package payment validates cash tendered against a total and assembles the
// resulting transaction record.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrAmountInsufficient = errors.New("amount paid is less than total")

// AmountInsufficientError carries the shortfall for display.
type AmountInsufficientError struct {
	Total      decimal.Decimal
	AmountPaid decimal.Decimal
}

func (e *AmountInsufficientError) Error() string {
	return fmt.Sprintf("amount paid %s is less than total %s", e.AmountPaid.StringFixed(2), e.Total.StringFixed(2))
}

func (e *AmountInsufficientError) Is(target error) bool {
	return target == ErrAmountInsufficient
}

func (e *AmountInsufficientError) Shortfall() decimal.Decimal {
	return e.Total.Sub(e.AmountPaid)
}

// MaxAmount is the largest amount a money column (numeric(10,2)) holds.
var MaxAmount = decimal.RequireFromString("99999999.99")

// Tender normalises cash handed over at the counter: rounded half-up to
// centavos so the response, the cached receipt and the stored row agree,
// and bounded to what can be persisted.
func Tender(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	switch {
	case amount.IsNegative():
		return decimal.Zero, model.Invalid("amount_paid", "must not be negative")
	case amount.GreaterThan(MaxAmount):
		return decimal.Zero, model.Invalid("amount_paid", "must not exceed "+MaxAmount.StringFixed(2))
	}
	return amount, nil
}

type Result struct {
	Change          decimal.Decimal
	ReferenceNumber string
}

// CompletePayment checks the tendered amount and issues a reference number.
// Nothing is generated when the amount is short.
func CompletePayment(ctx context.Context, total, amountPaid decimal.Decimal, now time.Time, refs ReferenceGenerator) (Result, error) {
	if amountPaid.IsNegative() {
		return Result{}, model.Invalid("amount_paid", "must not be negative")
	}
	if amountPaid.LessThan(total) {
		return Result{}, &AmountInsufficientError{Total: total, AmountPaid: amountPaid}
	}
	if refs == nil {
		refs = NewRandomReferences()
	}
	ref, err := refs.Next(ctx, now)
	if err != nil {
		return Result{}, fmt.Errorf("reference number: %w", err)
	}
	change := amountPaid.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}
	return Result{Change: change, ReferenceNumber: ref}, nil
}

// NewTransaction builds the payment record for a completed appointment.
func NewTransaction(appt model.Appointment, svc model.Service, addOns []model.Service, breakdown model.Breakdown, res Result, amountPaid decimal.Decimal, now time.Time) model.Transaction {
	lines := make([]model.AddOnLine, 0, len(addOns))
	for _, a := range addOns {
		lines = append(lines, model.AddOnLine{ServiceID: a.ID, Name: a.Name, Price: a.AddonPrice.Decimal})
	}
	return model.Transaction{
		ID:              uuid.NewString(),
		ReferenceNumber: res.ReferenceNumber,
		AppointmentID:   appt.ID,
		Branch:          appt.Branch,
		ServiceID:       svc.ID,
		ServiceName:     svc.Name,
		AddOns:          lines,
		Breakdown:       breakdown,
		AmountPaid:      amountPaid,
		Change:          res.Change,
		PaidAt:          now,
		Status:          model.StatusCompleted,
	}
}
