package metrics

import (
	"context"
	"sync"
)

// MemoryRecorder conta eventos em memória. Útil para testes e desenvolvimento;
// não faz expiração.
type MemoryRecorder struct {
	mu        sync.Mutex
	byOutcome map[Outcome]int64
	byKey     map[string]map[Outcome]int64

	trackKeys bool
}

type MemoryOption func(*MemoryRecorder)

func WithMemoryTrackKeys(track bool) MemoryOption {
	return func(m *MemoryRecorder) { m.trackKeys = track }
}

func NewMemoryRecorder(opts ...MemoryOption) *MemoryRecorder {
	m := &MemoryRecorder{
		byOutcome: make(map[Outcome]int64),
		byKey:     make(map[string]map[Outcome]int64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryRecorder) Record(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.byOutcome[ev.Outcome]++
	if m.trackKeys && ev.Key != "" {
		k := m.byKey[ev.Key]
		if k == nil {
			k = make(map[Outcome]int64)
			m.byKey[ev.Key] = k
		}
		k[ev.Outcome]++
	}
	return nil
}

func (m *MemoryRecorder) Count(o Outcome) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byOutcome[o]
}

func (m *MemoryRecorder) Total() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, v := range m.byOutcome {
		n += v
	}
	return n
}

func (m *MemoryRecorder) ByKey(key string) map[Outcome]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Outcome]int64, len(m.byKey[key]))
	for k, v := range m.byKey[key] {
		out[k] = v
	}
	return out
}
