package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-evaluator/internal/service/ratelimiter"
)

func newLimiter(t *testing.T, classes map[string]ratelimiter.BucketConfig) (*ratelimiter.RedisLuaLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return ratelimiter.NewRedisLuaLimiter(rdb, classes), mr
}

func TestAllow_ConsumesAndExhausts(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimiter.BucketConfig{
		"answers": {Capacity: 2, RefillRate: 0.001},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, "answers:10.0.0.1", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d within capacity", i)
	}

	allowed, retryAfter, err := l.Allow(ctx, "answers:10.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestAllow_BucketsAreIsolatedPerKey(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimiter.BucketConfig{
		"answers": {Capacity: 1, RefillRate: 0.001},
	})
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "answers:10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = l.Allow(ctx, "answers:10.0.0.2", 1)
	require.NoError(t, err)
	assert.True(t, allowed, "a different client keeps its own bucket")

	allowed, _, _ = l.Allow(ctx, "answers:10.0.0.1", 1)
	assert.False(t, allowed)
}

func TestAllow_UnknownClassFailsOpen(t *testing.T) {
	l, _ := newLimiter(t, map[string]ratelimiter.BucketConfig{})
	allowed, _, err := l.Allow(context.Background(), "unknown:10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	l, mr := newLimiter(t, map[string]ratelimiter.BucketConfig{
		"answers": {Capacity: 1, RefillRate: 1},
	})
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "answers:10.0.0.1", 1)
	assert.True(t, allowed, "limiter outage must not block submissions")
	assert.Error(t, err)
}

func TestAllow_NilLimiterAllows(t *testing.T) {
	var l *ratelimiter.RedisLuaLimiter
	allowed, _, err := l.Allow(context.Background(), "answers:10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_RefillRestoresTokens(t *testing.T) {
	l, mr := newLimiter(t, map[string]ratelimiter.BucketConfig{
		"answers": {Capacity: 1, RefillRate: 10},
	})
	ctx := context.Background()

	allowed, _, err := l.Allow(ctx, "answers:10.0.0.1", 1)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, _, _ = l.Allow(ctx, "answers:10.0.0.1", 1)
	require.False(t, allowed)

	// 200ms at 10 tokens/sec refills the single-token bucket.
	mr.FastForward(200 * time.Millisecond)
	time.Sleep(250 * time.Millisecond)

	allowed, _, err = l.Allow(ctx, "answers:10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	t.Parallel()
	cfg := ratelimiter.NewBucketConfigFromPerMinute(30)
	assert.Equal(t, int64(30), cfg.Capacity)
	assert.InDelta(t, 0.5, cfg.RefillRate, 1e-9)

	zero := ratelimiter.NewBucketConfigFromPerMinute(0)
	assert.Zero(t, zero.Capacity)
}
