package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestControllerUnlimitedMemory(t *testing.T) {
	c := NewController(Config{})
	require.NoError(t, c.AcquireMemory(1<<40))
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
}

func TestControllerSlots(t *testing.T) {
	c := NewController(Config{MaxConcurrentIO: 2})
	require.NoError(t, c.AcquireSlot(t.Context()))
	require.NoError(t, c.AcquireSlot(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireSlot(ctx), context.DeadlineExceeded)

	c.ReleaseSlot()
	require.NoError(t, c.AcquireSlot(t.Context()))
	assert.Equal(t, int64(2), c.Config().MaxConcurrentIO)
}

func TestControllerIOLimitSplitsLargeRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	// larger than the burst; must not fail with "exceeds burst"
	require.NoError(t, c.AcquireIO(t.Context(), 1<<20+1))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 1<<21))
}

func TestNilController(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	assert.NoError(t, c.AcquireIO(t.Context(), 10))
	assert.NoError(t, c.AcquireSlot(t.Context()))
	c.ReleaseSlot()
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())
	assert.Equal(t, Config{}, c.Config())
}
