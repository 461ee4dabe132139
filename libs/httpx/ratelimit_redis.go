package httpx

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares fixed windows across replicas. Keys are
// prefix:client:windowIndex so each window expires on its own.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration, prefix string) *RedisLimiter {
	limit, window = limiterDefaults(limit, window)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	idx := now.UnixMilli() / l.window.Milliseconds()
	resetAt := time.UnixMilli((idx + 1) * l.window.Milliseconds())

	bucket := l.prefix + ":" + key + ":" + strconv.FormatInt(idx, 10)

	var incr *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, bucket)
		p.ExpireAt(ctx, bucket, resetAt.Add(time.Second))
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if incr.Val() > int64(l.limit) {
		return false, resetAt.Sub(now), nil
	}
	return true, 0, nil
}
