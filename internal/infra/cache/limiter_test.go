package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store with an injectable failure.
type fakeStore struct {
	counts  map[string]int64
	expires map[string]time.Duration
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeStore) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeStore) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.expires[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func TestPingLimiter_DisabledPassesEverything(t *testing.T) {
	ctx := context.Background()
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"

	t.Run("nil limiter", func(t *testing.T) {
		var l *PingLimiter
		assert.True(t, l.Allow(ctx, token))
	})

	t.Run("no store configured", func(t *testing.T) {
		l := NewPingLimiter(nil, 60, time.Minute, zap.NewNop())
		assert.True(t, l.Allow(ctx, token))
	})

	t.Run("zero max", func(t *testing.T) {
		l := NewPingLimiter(newFakeStore(), 0, time.Minute, zap.NewNop())
		assert.True(t, l.Allow(ctx, token))
	})
}

func TestPingLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	token := "kal_live_0123456789abcdefghijklmnopqrstuv"

	store := newFakeStore()
	l := NewPingLimiter(store, 3, time.Minute, zap.NewNop())

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(ctx, token), "ping %d is within the window", i+1)
	}
	assert.False(t, l.Allow(ctx, token), "the fourth ping exceeds max=3")

	// A different token counts in its own window.
	assert.True(t, l.Allow(ctx, "kal_live_otherotherotherotherotherother"))

	// The window expiry is armed on the first increment.
	require.Len(t, store.expires, 2)
	for _, per := range store.expires {
		assert.Equal(t, time.Minute, per)
	}

	// Keys carry a digest, never the raw credential.
	for key := range store.counts {
		assert.NotContains(t, key, token)
		assert.True(t, strings.HasPrefix(key, "ping:rate:"))
	}
}

func TestPingLimiter_FailsOpen(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	store.err = errors.New("connection refused")

	l := NewPingLimiter(store, 1, time.Minute, zap.NewNop())
	assert.True(t, l.Allow(ctx, "kal_live_0123456789abcdefghijklmnopqrstuv"),
		"a broken limiter must not drop heartbeats")
}
