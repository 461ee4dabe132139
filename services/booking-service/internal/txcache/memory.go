package txcache

import (
	"context"
	"sync"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/payment"
)

// Memory is a process-local cache used when Redis is not configured.
// Expired entries are swept at most once per TTL on writes.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int64]memoryEntry
	sweepAt time.Time
}

type memoryEntry struct {
	txn       model.Transaction
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, entries: map[int64]memoryEntry{}}
}

func (c *Memory) Get(_ context.Context, appointmentID int64) (model.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[appointmentID]
	if !ok {
		return model.Transaction{}, payment.ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, appointmentID)
		return model.Transaction{}, payment.ErrCacheMiss
	}
	return e.txn, nil
}

func (c *Memory) Set(_ context.Context, txn model.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	e := memoryEntry{txn: txn}
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
		if now.After(c.sweepAt) {
			for id, old := range c.entries {
				if now.After(old.expiresAt) {
					delete(c.entries, id)
				}
			}
			c.sweepAt = now.Add(c.ttl)
		}
	}
	c.entries[txn.AppointmentID] = e
	return nil
}

var _ payment.TransactionCache = (*Memory)(nil)
