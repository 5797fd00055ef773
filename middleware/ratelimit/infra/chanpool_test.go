package infra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotPool_BlocksWhenFull(t *testing.T) {
	p := NewSlotPool(1)

	release, ok := p.Acquire(context.Background())
	require.True(t, ok)
	assert.EqualValues(t, 1, p.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok = p.Acquire(ctx)
	assert.False(t, ok)

	release()
	assert.EqualValues(t, 0, p.InUse())

	release2, ok := p.Acquire(context.Background())
	require.True(t, ok)
	release2()
}

func TestSlotPool_ReleaseIsIdempotent(t *testing.T) {
	p := NewSlotPool(2)

	release, ok := p.Acquire(context.Background())
	require.True(t, ok)
	release()
	release()

	assert.EqualValues(t, 0, p.InUse())
	assert.Equal(t, 2, p.Cap())
}

func TestSlotPool_CancelledContextNeverAcquires(t *testing.T) {
	p := NewSlotPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := p.Acquire(ctx)
	assert.False(t, ok)
	assert.EqualValues(t, 0, p.InUse())
}

func TestNewSlotPool_NonPositiveSizeIsOne(t *testing.T) {
	assert.Equal(t, 1, NewSlotPool(0).Cap())
}
