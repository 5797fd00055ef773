package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder_CountsByOutcomeAndKey(t *testing.T) {
	m := NewMemoryRecorder(WithMemoryTrackKeys(true))
	ctx := context.Background()

	_ = m.Record(ctx, Event{Outcome: OutcomeCacheHit, Key: "1.1.1.1"})
	_ = m.Record(ctx, Event{Outcome: OutcomeCacheHit, Key: "1.1.1.1"})
	_ = m.Record(ctx, Event{Outcome: OutcomeRateLimited, Key: "2.2.2.2"})

	assert.EqualValues(t, 2, m.Count(OutcomeCacheHit))
	assert.EqualValues(t, 1, m.Count(OutcomeRateLimited))
	assert.EqualValues(t, 3, m.Total())
	assert.Equal(t, map[Outcome]int64{OutcomeCacheHit: 2}, m.ByKey("1.1.1.1"))
}

func TestMemoryRecorder_KeysNotTrackedByDefault(t *testing.T) {
	m := NewMemoryRecorder()
	_ = m.Record(context.Background(), Event{Outcome: OutcomeCacheMiss, Key: "1.1.1.1"})
	assert.Empty(t, m.ByKey("1.1.1.1"))
}

func TestRedisRecorder_WritesCounters(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := NewRedisRecorder(rdb, WithPrefix("gw:stats:"), WithTTL(time.Hour), WithTrackKeys(true))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, Event{Outcome: OutcomeCacheMiss, Status: 200, Key: "9.9.9.9", At: at}))
	require.NoError(t, rec.Record(ctx, Event{Outcome: OutcomeCacheHit, Status: 200, Key: "9.9.9.9", At: at}))
	require.NoError(t, rec.Record(ctx, Event{Outcome: OutcomeRateLimited, Status: 429, At: at}))

	assert.Equal(t, "1", mr.HGet("gw:stats:total", "cache_miss"))
	assert.Equal(t, "1", mr.HGet("gw:stats:total", "rate_limited"))
	assert.Equal(t, "2", mr.HGet("gw:stats:status", "200"))
	assert.Equal(t, "1", mr.HGet("gw:stats:status", "429"))
	assert.Equal(t, "1", mr.HGet("gw:stats:minute:202601020304", "cache_hit"))
	assert.Equal(t, time.Hour, mr.TTL("gw:stats:minute:202601020304"))
	assert.Equal(t, "1", mr.HGet("gw:stats:key:9.9.9.9", "cache_miss"))
	assert.Zero(t, mr.TTL("gw:stats:total"))
}

func TestRedisRecorder_NoBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rec := NewRedisRecorder(rdb, WithBucket("none"))
	require.NoError(t, rec.Record(context.Background(), Event{Outcome: OutcomeError}))

	assert.Equal(t, []string{"gateway:stats:total"}, mr.Keys())
}

func TestRedisRecorder_NilIsNoop(t *testing.T) {
	var rec *RedisRecorder
	assert.NoError(t, rec.Record(context.Background(), Event{Outcome: OutcomeError}))
}
