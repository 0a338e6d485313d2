package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivah/internal/cache"
	"github.com/oggyb/vivah/internal/config"
)

func newCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestPendingCount_MissThenHit(t *testing.T) {
	ctx := context.Background()
	rc, _ := newCache(t)

	_, ok, err := rc.GetPendingCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, rc.SetPendingCount(ctx, "u1", 3))
	n, ok, err := rc.GetPendingCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)
}

func TestAdjustPendingCount_OnlyWhenCached(t *testing.T) {
	ctx := context.Background()
	rc, mr := newCache(t)

	require.NoError(t, rc.AdjustPendingCount(ctx, "u1", 1))
	assert.False(t, mr.Exists(rc.KeyForPendingCount("u1")))

	require.NoError(t, rc.SetPendingCount(ctx, "u1", 1))
	require.NoError(t, rc.AdjustPendingCount(ctx, "u1", -1))
	n, ok, err := rc.GetPendingCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)
}

func TestPendingCount_NegativeForcesRefill(t *testing.T) {
	ctx := context.Background()
	rc, mr := newCache(t)

	require.NoError(t, mr.Set(rc.KeyForPendingCount("u1"), "-2"))
	_, ok, err := rc.GetPendingCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPresence(t *testing.T) {
	ctx := context.Background()
	rc, mr := newCache(t)

	require.NoError(t, rc.MarkOnline(ctx, "u1", time.Minute))
	online, err := rc.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(2 * time.Minute)
	online, err = rc.IsOnline(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, rc.MarkOnline(ctx, "u1", time.Minute))
	require.NoError(t, rc.MarkOffline(ctx, "u1"))
	online, _ = rc.IsOnline(ctx, "u1")
	assert.False(t, online)

	seen, err := rc.LastSeen(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, seen.IsZero())
}
