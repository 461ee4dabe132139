package payment

import (
	"context"
	"errors"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
)

var ErrCacheMiss = errors.New("transaction not cached")

// TransactionCache holds receipts keyed by appointment for quick redisplay.
// It is a convenience layer; the database stays authoritative.
type TransactionCache interface {
	Get(ctx context.Context, appointmentID int64) (model.Transaction, error)
	Set(ctx context.Context, txn model.Transaction) error
}
