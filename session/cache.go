package session

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL é o TTL do store quando nenhum é configurado.
const DefaultTTL = 3600 * time.Second

// KeyPrefix precede o id do usuário na chave do store.
const KeyPrefix = "session:"

// Store é o contrato mínimo do key-value externo.
//
// Get devolve ok=false quando a chave não existe.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error
	Del(ctx context.Context, key string) error
}

// Cache guarda sessões verificadas por usuário (cache-aside).
//
// O TTL do store e o expires_at embutido são independentes: todo hit confere
// expires_at de novo.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{store: store, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration { return c.ttl }

func Key(userID string) string { return KeyPrefix + userID }

// Get retorna a sessão em cache, ErrCacheMiss ou ErrSessionExpired. Uma entrada
// vencida é removida antes de retornar ErrSessionExpired.
func (c *Cache) Get(ctx context.Context, userID string) (Session, error) {
	raw, ok, err := c.store.Get(ctx, Key(userID))
	if err != nil {
		return Session{}, fmt.Errorf("session cache get: %w", err)
	}
	if !ok {
		return Session{}, ErrCacheMiss
	}

	s, err := Decode(raw)
	if err != nil {
		return Session{}, fmt.Errorf("session cache decode %q: %w", userID, err)
	}

	if s.Expired(c.now()) {
		if err := c.Invalidate(ctx, userID); err != nil {
			return Session{}, err
		}
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

// Put grava a sessão com o TTL dado (ttl <= 0 usa o TTL do cache).
func (c *Cache) Put(ctx context.Context, userID string, s Session, ttl time.Duration) error {
	if s.IsZero() {
		return fmt.Errorf("session cache put %q: empty session", userID)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	if err := c.store.SetEx(ctx, Key(userID), ttl, raw); err != nil {
		return fmt.Errorf("session cache put: %w", err)
	}
	return nil
}

func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if err := c.store.Del(ctx, Key(userID)); err != nil {
		return fmt.Errorf("session cache invalidate: %w", err)
	}
	return nil
}
