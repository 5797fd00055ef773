package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestSlidingWindow_EleventhRequestRejected(t *testing.T) {
	_, rdb := newRedis(t)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	sw := NewSlidingWindow(rdb, 10, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := sw.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.Truef(t, dec.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 10-i-1, dec.Remaining)
		clock.Advance(100 * time.Millisecond)
	}

	dec, err := sw.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Zero(t, dec.Remaining)
	// o primeiro registro (t0) sai da janela em t0+10s; agora é t0+1s
	assert.Equal(t, 9*time.Second, dec.RetryAfter)
}

func TestSlidingWindow_NewWindowAccepts(t *testing.T) {
	_, rdb := newRedis(t)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	sw := NewSlidingWindow(rdb, 10, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		dec, err := sw.Allow(ctx, "c")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}
	dec, _ := sw.Allow(ctx, "c")
	require.False(t, dec.Allowed)

	clock.Advance(10 * time.Second)
	dec, err := sw.Allow(ctx, "c")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestSlidingWindow_SlidesInsteadOfResetting(t *testing.T) {
	_, rdb := newRedis(t)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	sw := NewSlidingWindow(rdb, 2, 10*time.Second, WithClock(clock.Now))
	ctx := context.Background()

	d, _ := sw.Allow(ctx, "c") // t0
	require.True(t, d.Allowed)
	clock.Advance(6 * time.Second)
	d, _ = sw.Allow(ctx, "c") // t0+6
	require.True(t, d.Allowed)

	clock.Advance(5 * time.Second) // t0+11: só o de t0 saiu
	d, _ = sw.Allow(ctx, "c")
	require.True(t, d.Allowed)
	d, _ = sw.Allow(ctx, "c")
	assert.False(t, d.Allowed)
}

func TestSlidingWindow_SameMillisecondCountsTwice(t *testing.T) {
	_, rdb := newRedis(t)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	sw := NewSlidingWindow(rdb, 2, time.Second, WithClock(clock.Now))
	ctx := context.Background()

	d1, _ := sw.Allow(ctx, "c")
	d2, _ := sw.Allow(ctx, "c")
	d3, _ := sw.Allow(ctx, "c")
	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
	assert.False(t, d3.Allowed)
}

func TestSlidingWindow_KeysAreIndependentAndPrefixed(t *testing.T) {
	mr, rdb := newRedis(t)
	sw := NewSlidingWindow(rdb, 1, time.Minute, WithKeyPrefix("rl:"))
	ctx := context.Background()

	d1, err := sw.Allow(ctx, "a")
	require.NoError(t, err)
	d2, err := sw.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d1.Allowed)
	assert.True(t, d2.Allowed)
	assert.True(t, mr.Exists("rl:a"))
	assert.True(t, mr.Exists("rl:b"))
}

func TestSlidingWindow_StoreDownReturnsError(t *testing.T) {
	mr, rdb := newRedis(t)
	sw := NewSlidingWindow(rdb, 10, time.Second)
	mr.Close()

	_, err := sw.Allow(context.Background(), "c")
	assert.Error(t, err)
}
