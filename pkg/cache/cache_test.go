package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	GSR    float64 `json:"gsr"`
	Regime string  `json:"regime"`
}

func newTestMemory(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(append([]MemoryOption{WithMemoryCleanup(0)}, opts...)...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "gsr:current", snapshot{GSR: 82.5, Regime: "neutral"}, time.Minute))

	var got snapshot
	require.NoError(t, mc.Get(ctx, "gsr:current", &got))
	assert.Equal(t, snapshot{GSR: 82.5, Regime: "neutral"}, got)

	require.NoError(t, mc.Set(ctx, "raw", "hello", time.Minute))
	var s string
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "hello", s)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	var v int
	assert.ErrorIs(t, mc.Get(ctx, "missing", &v), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "k", 7, time.Second))
	require.NoError(t, mc.Get(ctx, "k", &v))
	assert.Equal(t, 7, v)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t, WithMemoryMaxSize(2))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { now = now.Add(time.Millisecond); return now }

	require.NoError(t, mc.Set(ctx, "a", 1, time.Hour))
	require.NoError(t, mc.Set(ctx, "b", 2, time.Hour))
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Hour))

	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, Key("gsr", "stats", 90), 1, time.Hour))
	require.NoError(t, mc.Set(ctx, Key("gsr", "current"), 2, time.Hour))
	require.NoError(t, mc.Set(ctx, Key("backtest", "x"), 3, time.Hour))

	require.NoError(t, mc.DeleteByPattern(ctx, Pattern("gsr")))
	assert.Equal(t, 1, mc.Len())

	var v int
	assert.NoError(t, mc.Get(ctx, "backtest:x", &v))
	assert.Error(t, mc.DeleteByPattern(ctx, "["))
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)

	ok, err := mc.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "job"))
	ok, _ = mc.TryLock(ctx, "job", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCacheFillsL1FromL2(t *testing.T) {
	ctx := context.Background()
	l2 := newTestMemory(t)
	lc := NewLayeredCache(l2)
	t.Cleanup(func() { _ = lc.l1.Close() })

	require.NoError(t, l2.Set(ctx, "k", snapshot{GSR: 70}, time.Hour))

	var got snapshot
	require.NoError(t, lc.Get(ctx, "k", &got))
	assert.Equal(t, 70.0, got.GSR)
	assert.Equal(t, 1, lc.l1.Len())

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := newTestMemory(t)
	calls := 0
	load := func(context.Context) (snapshot, error) {
		calls++
		return snapshot{GSR: 90}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, mc, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 90.0, got.GSR)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := GetOrLoad(ctx, mc, "other", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	got, err := GetOrLoad[snapshot](ctx, nil, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.GSR)
}

func TestKey(t *testing.T) {
	day := time.Date(2024, 3, 5, 13, 0, 0, 0, time.UTC)
	assert.Equal(t, "gsr:stats:2024-03-05:90", Key("gsr", "stats", day, 90))
	assert.Equal(t, "gsr:*", Pattern("gsr"))
}
