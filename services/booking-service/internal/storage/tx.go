package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/outbox"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Tx is the set of writes a booking operation performs atomically.
type Tx interface {
	LockIdempotencyKey(ctx context.Context, scope, key string) (IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, scope, key string, appointmentID int64, statusCode int, response []byte) error
	// LockDay serialises bookings for one branch and date until the transaction ends.
	LockDay(ctx context.Context, branch model.Branch, date time.Time) error
	HasOverlap(ctx context.Context, branch model.Branch, date, start, end time.Time) (bool, error)
	CreateAppointment(ctx context.Context, appt *model.Appointment) error
	GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error)
	UpdateStatus(ctx context.Context, id int64, status model.Status) (time.Time, error)
	CompleteAppointment(ctx context.Context, id int64, amountPaid, change decimal.Decimal) error
	InsertTransaction(ctx context.Context, txn model.Transaction) error
	InsertEvent(ctx context.Context, evt outbox.Event) error
}

type IdempotencyRecord struct {
	Scope           string
	IdempotencyKey  string
	AppointmentID   int64
	StatusCode      int
	ResponsePayload []byte
}

type pgTx struct {
	tx  pgx.Tx
	loc *time.Location
}

func (t *pgTx) LockIdempotencyKey(ctx context.Context, scope, key string) (IdempotencyRecord, bool, error) {
	rec, err := t.selectIdempotencyForUpdate(ctx, scope, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (scope, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (scope, idempotency_key) DO NOTHING
	`, scope, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = t.selectIdempotencyForUpdate(ctx, scope, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (t *pgTx) selectIdempotencyForUpdate(ctx context.Context, scope, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := t.tx.QueryRow(ctx, `
		SELECT scope,
			idempotency_key,
			COALESCE(appointment_id, 0),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE scope = $1 AND idempotency_key = $2
		FOR UPDATE
	`, scope, key).Scan(
		&rec.Scope,
		&rec.IdempotencyKey,
		&rec.AppointmentID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

func (t *pgTx) FinalizeIdempotency(ctx context.Context, scope, key string, appointmentID int64, statusCode int, response []byte) error {
	var apptID *int64
	if appointmentID > 0 {
		apptID = &appointmentID
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE scope = $1 AND idempotency_key = $2
	`, scope, key, apptID, statusCode, response)
	return err
}

func (t *pgTx) LockDay(ctx context.Context, branch model.Branch, date time.Time) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		fmt.Sprintf("booking:%s:%s", branch, date.Format("2006-01-02")))
	return err
}

func (t *pgTx) HasOverlap(ctx context.Context, branch model.Branch, date, start, end time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE branch = $1
				AND appointment_date = $2
				AND status IN ('pending', 'confirmed')
				AND NOT may_overlap
				AND start_time < $4::time
				AND end_time > $3::time
		)
	`, string(branch), dateOnly(date), start.Format(clockLayout), end.Format(clockLayout)).Scan(&exists)
	return exists, err
}

func (t *pgTx) CreateAppointment(ctx context.Context, appt *model.Appointment) error {
	addOns := appt.AddOnIDs
	if addOns == nil {
		addOns = []int64{}
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(user_id, branch, service_id, pet_id, add_on_ids, appointment_date, start_time, end_time, status, notes, may_overlap)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, appt.UserID, string(appt.Branch), appt.ServiceID, appt.PetID, addOns, dateOnly(appt.Date),
		appt.StartTime.Format(clockLayout), appt.EndTime.Format(clockLayout), string(appt.Status), appt.Notes, appt.MayOverlap,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if IsConflict(err) {
		return ErrSlotTaken
	}
	return err
}

func (t *pgTx) GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	appt, err := scanAppointment(t.tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id), t.loc)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	return appt, err
}

func (t *pgTx) UpdateStatus(ctx context.Context, id int64, status model.Status) (time.Time, error) {
	var updatedAt time.Time
	err := t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, string(status)).Scan(&updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	return updatedAt, err
}

func (t *pgTx) CompleteAppointment(ctx context.Context, id int64, amountPaid, change decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'completed',
			amount_paid = $2,
			change_amount = $3,
			updated_at = now()
		WHERE id = $1
	`, id, amountPaid.String(), change.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const transactionColumns = `id::text, reference_number, appointment_id, branch, service_id, service_name, COALESCE(size, ''),
	service_price, add_ons_total, subtotal, tax, total, amount_paid, change_amount, add_ons, status, paid_at`

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var txn model.Transaction
	var size string
	var addOns []byte
	err := row.Scan(&txn.ID, &txn.ReferenceNumber, &txn.AppointmentID, &txn.Branch, &txn.ServiceID, &txn.ServiceName, &size,
		&txn.Breakdown.ServicePrice, &txn.Breakdown.AddOnsTotal, &txn.Breakdown.Subtotal, &txn.Breakdown.Tax, &txn.Breakdown.Total,
		&txn.AmountPaid, &txn.Change, &addOns, &txn.Status, &txn.PaidAt)
	if err != nil {
		return model.Transaction{}, err
	}
	if size != "" {
		s := model.Size(size)
		txn.Breakdown.Size = &s
	}
	if len(addOns) > 0 {
		if err := json.Unmarshal(addOns, &txn.AddOns); err != nil {
			return model.Transaction{}, fmt.Errorf("decode add-on lines: %w", err)
		}
	}
	return txn, nil
}

// InsertTransaction returns ErrReferenceTaken without aborting the transaction
// when the reference number collides, so the caller can retry with a new one.
func (t *pgTx) InsertTransaction(ctx context.Context, txn model.Transaction) error {
	addOns, err := json.Marshal(txn.AddOns)
	if err != nil {
		return err
	}
	var size *string
	if txn.Breakdown.Size != nil {
		s := string(*txn.Breakdown.Size)
		size = &s
	}
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO transactions
			(id, reference_number, appointment_id, branch, service_id, service_name, size,
			 service_price, add_ons_total, subtotal, tax, total, amount_paid, change_amount, add_ons, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (reference_number) DO NOTHING
	`, txn.ID, txn.ReferenceNumber, txn.AppointmentID, string(txn.Branch), txn.ServiceID, txn.ServiceName, size,
		txn.Breakdown.ServicePrice.String(), txn.Breakdown.AddOnsTotal.String(), txn.Breakdown.Subtotal.String(),
		txn.Breakdown.Tax.String(), txn.Breakdown.Total.String(), txn.AmountPaid.String(), txn.Change.String(),
		addOns, string(txn.Status), txn.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReferenceTaken
	}
	return nil
}

func (t *pgTx) InsertEvent(ctx context.Context, evt outbox.Event) error {
	return outbox.Insert(ctx, t.tx, evt)
}

var _ Tx = (*pgTx)(nil)
