package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Appointment struct {
	ID        int64
	UserID    string
	Branch    Branch
	ServiceID int64
	PetID     *int64
	AddOnIDs  []int64
	// Date is midnight of the appointment day in the business location.
	Date      time.Time
	StartTime time.Time
	EndTime   time.Time
	Status    Status
	Notes     string
	// MayOverlap snapshots the booked service's flag; such bookings never block others.
	MayOverlap bool
	AmountPaid *decimal.Decimal
	Change     *decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BlocksSlots reports whether this appointment excludes overlapping bookings.
func (a Appointment) BlocksSlots() bool {
	return a.Status.Blocks() && !a.MayOverlap
}
