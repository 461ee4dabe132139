package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

const referenceDateLayout = "20060102"

// ReferenceGenerator issues 12 digit receipt numbers: YYYYMMDD plus four digits.
// Uniqueness is not promised; transactions are identified by their UUID.
type ReferenceGenerator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

type RandomReferences struct {
	intN func(int) int
}

func NewRandomReferences() *RandomReferences {
	return &RandomReferences{intN: rand.IntN}
}

func (g *RandomReferences) Next(_ context.Context, now time.Time) (string, error) {
	return fmt.Sprintf("%s%04d", now.Format(referenceDateLayout), g.intN(10000)), nil
}

// Counter is the subset of a Redis client used for daily sequences.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// SequenceReferences draws the suffix from a per-day Redis counter so numbers
// within a day are monotonic. Past 9999 it degrades to random suffixes.
type SequenceReferences struct {
	rdb      Counter
	prefix   string
	fallback *RandomReferences
}

func NewSequenceReferences(rdb Counter, prefix string) *SequenceReferences {
	if prefix == "" {
		prefix = "petcare:refseq"
	}
	return &SequenceReferences{rdb: rdb, prefix: prefix, fallback: NewRandomReferences()}
}

func (g *SequenceReferences) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.Format(referenceDateLayout)
	key := g.prefix + ":" + day
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", err
	}
	if n == 1 {
		// Keep a day of slack past midnight for late captures.
		if err := g.rdb.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			return "", err
		}
	}
	if n > 9999 {
		return g.fallback.Next(ctx, now)
	}
	return fmt.Sprintf("%s%04d", day, n), nil
}
