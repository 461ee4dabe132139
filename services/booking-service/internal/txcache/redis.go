// Package txcache stores receipts keyed by appointment id.
package txcache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/chonkyweb/petcare/services/booking-service/internal/model"
	"github.com/chonkyweb/petcare/services/booking-service/internal/payment"
	"github.com/redis/go-redis/v9"
)

type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type Redis struct {
	rdb    KV
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb KV, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "petcare:txn"
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis) key(appointmentID int64) string {
	return c.prefix + ":" + strconv.FormatInt(appointmentID, 10)
}

func (c *Redis) Get(ctx context.Context, appointmentID int64) (model.Transaction, error) {
	raw, err := c.rdb.Get(ctx, c.key(appointmentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Transaction{}, payment.ErrCacheMiss
		}
		return model.Transaction{}, err
	}
	var txn model.Transaction
	if err := json.Unmarshal(raw, &txn); err != nil {
		return model.Transaction{}, err
	}
	return txn, nil
}

func (c *Redis) Set(ctx context.Context, txn model.Transaction) error {
	body, err := json.Marshal(txn)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(txn.AppointmentID), body, c.ttl).Err()
}

var _ payment.TransactionCache = (*Redis)(nil)
