package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the subset of redis commands the limiter needs. A *redis.Client
// satisfies it.
type Store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// PingLimiter is a fixed-window per-token counter guarding the ingestion
// endpoint against runaway clients.
type PingLimiter struct {
	rdb Store
	max int
	per time.Duration
	log *zap.Logger
}

func NewPingLimiter(rdb Store, max int, per time.Duration, log *zap.Logger) *PingLimiter {
	return &PingLimiter{rdb: rdb, max: max, per: per, log: log}
}

// Allow reports whether another ping may be ingested for the given token.
// Fails open on Redis errors: a broken limiter must not drop heartbeats.
func (l *PingLimiter) Allow(ctx context.Context, token string) bool {
	if l == nil || l.rdb == nil || l.max <= 0 {
		return true
	}

	// Key on a digest so the raw credential never reaches Redis.
	sum := sha256.Sum256([]byte(token))
	key := "ping:rate:" + hex.EncodeToString(sum[:])

	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Sugar().Warnw("ping rate limiter unavailable", "err", err)
		return true
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, key, l.per).Err(); err != nil {
			l.log.Sugar().Warnw("ping rate limiter expire failed", "err", err)
		}
	}

	return n <= int64(l.max)
}
