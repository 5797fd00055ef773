package infra

import (
	"context"
	"math"
	"sync"
	"time"

	"session-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// LocalStore é o limiter de fallback em memória (token bucket, x/time/rate),
// usado pela política "local" quando o Redis está fora.
//
// Vale só para esta instância: com N réplicas a cota efetiva é N vezes maior.
type LocalStore struct {
	mu           sync.Mutex
	entries      map[string]*storeEntry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type StoreOption func(*LocalStore)

func WithIdleTTL(d time.Duration) StoreOption {
	return func(s *LocalStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) StoreOption {
	return func(s *LocalStore) { s.cleanupEvery = d }
}

// NewLocalStore cria buckets que aproximam "limit por window": taxa limit/window
// e burst limit.
func NewLocalStore(limit int, window time.Duration, opts ...StoreOption) *LocalStore {
	rps := rate.Inf
	if window > 0 {
		rps = rate.Limit(float64(limit) / window.Seconds())
	}
	s := &LocalStore{
		entries:      make(map[string]*storeEntry),
		rps:          rps,
		burst:        limit,
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) RPS() float64 { return float64(s.rps) }
func (s *LocalStore) Burst() int   { return s.burst }

// Allow implementa domain.Limiter. Nunca retorna erro.
func (s *LocalStore) Allow(_ context.Context, key domain.Key) (domain.Decision, error) {
	lim := s.limiter(string(key))

	now := time.Now()
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return domain.Decision{Allowed: false, Limit: s.burst}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return domain.Decision{Allowed: false, Limit: s.burst, RetryAfter: delay}, nil
	}

	remaining := int(math.Floor(lim.TokensAt(now)))
	if remaining < 0 {
		remaining = 0
	}
	return domain.Decision{Allowed: true, Limit: s.burst, Remaining: remaining}, nil
}

func (s *LocalStore) limiter(key string) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.rps, s.burst)
	s.entries[key] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *LocalStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *LocalStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
