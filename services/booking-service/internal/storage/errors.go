package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrSlotTaken means another active booking already holds the window.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrReferenceTaken means the generated reference number is already in use.
	ErrReferenceTaken = errors.New("reference number already used")
)

// IsConflict matches unique and exclusion constraint violations.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
