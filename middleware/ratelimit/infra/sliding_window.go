package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"session-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript poda, conta e registra em um único round-trip.
//
// KEYS[1] = chave da janela (sorted set, score = timestamp em ms)
// ARGV    = now_ms, window_ms, limit, member
//
// Retorna {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, limit - count - 1, 0}
end

local retry = window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
	retry = tonumber(oldest[2]) + window - now
end
if retry < 1 then
	retry = 1
end
return {0, 0, retry}
`)

// SlidingWindow é o limiter distribuído: N requisições por janela W, deslizante,
// guardado em um sorted set por chave no Redis compartilhado entre instâncias.
type SlidingWindow struct {
	rdb    redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

type SlidingWindowOption func(*SlidingWindow)

func WithKeyPrefix(prefix string) SlidingWindowOption {
	return func(s *SlidingWindow) { s.prefix = strings.Trim(prefix, ":") }
}

// WithClock troca a fonte de tempo (testes).
func WithClock(now func() time.Time) SlidingWindowOption {
	return func(s *SlidingWindow) { s.now = now }
}

func NewSlidingWindow(rdb redis.UniversalClient, limit int, window time.Duration, opts ...SlidingWindowOption) *SlidingWindow {
	s := &SlidingWindow{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "ratelimit",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlidingWindow) Limit() int             { return s.limit }
func (s *SlidingWindow) Window() time.Duration { return s.window }

// Allow implementa domain.Limiter.
func (s *SlidingWindow) Allow(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if s.rdb == nil {
		return domain.Decision{}, errors.New("sliding window: nil redis client")
	}

	now := s.now().UnixMilli()
	res, err := slidingWindowScript.Run(ctx, s.rdb,
		[]string{s.prefix + ":" + string(key)},
		now,
		s.window.Milliseconds(),
		s.limit,
		// membro único: duas requisições no mesmo ms contam duas vezes
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("sliding window %q: %w", key, err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("sliding window %q: unexpected reply %v", key, res)
	}

	return domain.Decision{
		Allowed:    res[0] == 1,
		Limit:      s.limit,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
