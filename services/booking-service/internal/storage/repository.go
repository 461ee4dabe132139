package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chonkyweb/petcare/libs/db"
	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const clockLayout = "15:04"

// Repository reads the catalog and appointments and opens booking transactions.
// Appointment dates and clock times are interpreted in loc.
type Repository struct {
	pool *db.Pool
	loc  *time.Location
}

func NewRepository(pool *db.Pool, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{pool: pool, loc: loc}
}

// InTx runs fn against a single database transaction.
func (r *Repository) InTx(ctx context.Context, fn func(Tx) error) error {
	return r.pool.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&pgTx{tx: tx, loc: r.loc})
	})
}

const serviceColumns = `id, service_name, duration_minutes, is_solo, can_be_addon, can_be_standalone, has_sizes, may_overlap,
	base_price, small_price, medium_price, large_price, extra_large_price, addon_price, standalone_price`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	// Prices scan through model.Price, which zeroes anything unparseable.
	err := row.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.IsSolo, &s.CanBeAddon, &s.CanBeStandalone, &s.HasSizes, &s.MayOverlap,
		&s.BasePrice, &s.SmallPrice, &s.MediumPrice, &s.LargePrice, &s.ExtraLargePrice, &s.AddonPrice, &s.StandalonePrice)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *Repository) GetService(ctx context.Context, id int64) (model.Service, error) {
	svc, err := scanService(r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE id = $1 AND is_active
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Service{}, ErrNotFound
	}
	return svc, err
}

// ListServices returns active services; with ids it returns only those, in id order.
func (r *Repository) ListServices(ctx context.Context, ids []int64) ([]model.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE is_active`
	var args []any
	if ids != nil {
		query += ` AND id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

const appointmentColumns = `id, user_id, branch, service_id, pet_id, add_on_ids, appointment_date,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status, notes, may_overlap,
	amount_paid, change_amount, created_at, updated_at`

func scanAppointment(row pgx.Row, loc *time.Location) (model.Appointment, error) {
	var a model.Appointment
	var date time.Time
	var start, end string
	var paid, change decimal.NullDecimal
	err := row.Scan(&a.ID, &a.UserID, &a.Branch, &a.ServiceID, &a.PetID, &a.AddOnIDs, &date,
		&start, &end, &a.Status, &a.Notes, &a.MayOverlap, &paid, &change, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	y, m, d := date.Date()
	a.Date = time.Date(y, m, d, 0, 0, 0, 0, loc)
	if a.StartTime, err = atClock(a.Date, start); err != nil {
		return model.Appointment{}, err
	}
	if a.EndTime, err = atClock(a.Date, end); err != nil {
		return model.Appointment{}, err
	}
	if paid.Valid {
		a.AmountPaid = &paid.Decimal
	}
	if change.Valid {
		a.Change = &change.Decimal
	}
	return a, nil
}

func atClock(day time.Time, hhmm string) (time.Time, error) {
	c, err := time.Parse(clockLayout, hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad clock %q: %w", hhmm, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

func collectAppointments(rows pgx.Rows, loc *time.Location) ([]model.Appointment, error) {
	defer rows.Close()
	var appts []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows, loc)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListActiveForDay returns pending and confirmed appointments at branch on date.
func (r *Repository) ListActiveForDay(ctx context.Context, branch model.Branch, date time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE branch = $1
			AND appointment_date = $2
			AND status IN ('pending', 'confirmed')
		ORDER BY start_time ASC
	`, string(branch), dateOnly(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows, r.loc)
}

type ListFilter struct {
	// UserID restricts results to one customer; empty means all.
	UserID string
	Branch model.Branch
	Date   *time.Time
	Status model.Status
	Limit  int
}

func (r *Repository) ListAppointments(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Branch != "" {
		add("branch = $%d", string(f.Branch))
	}
	if f.Date != nil {
		add("appointment_date = $%d", dateOnly(*f.Date))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY appointment_date DESC, start_time DESC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows, r.loc)
}

func (r *Repository) GetTransaction(ctx context.Context, appointmentID int64) (model.Transaction, error) {
	txn, err := scanTransaction(r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE appointment_id = $1
	`, appointmentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, ErrNotFound
	}
	return txn, err
}

// dateOnly keeps the calendar day regardless of location so pgx encodes the intended date.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (r *Repository) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	appt, err := scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id), r.loc)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, ErrNotFound
	}
	return appt, err
}
