package infra

import (
	"context"
	"sync/atomic"

	"session-gateway/middleware/ratelimit/domain"
)

// SlotPool é um semáforo de channel com contagem de vagas ocupadas.
type SlotPool struct {
	slots chan struct{}
	inUse atomic.Int64
}

var _ domain.SlotPool = (*SlotPool)(nil)

// NewSlotPool cria um pool com `size` vagas. size <= 0 vira 1.
func NewSlotPool(size int) *SlotPool {
	if size <= 0 {
		size = 1
	}
	return &SlotPool{slots: make(chan struct{}, size)}
}

func (p *SlotPool) Cap() int     { return cap(p.slots) }
func (p *SlotPool) InUse() int64 { return p.inUse.Load() }

func (p *SlotPool) Acquire(ctx context.Context) (func(), bool) {
	// ctx já encerrado não disputa vaga
	if ctx.Err() != nil {
		return nil, false
	}
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	p.inUse.Add(1)

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			p.inUse.Add(-1)
			<-p.slots
		}
	}, true
}
