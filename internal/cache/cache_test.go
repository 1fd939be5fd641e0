package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestClient(t *testing.T, maxSize int) (*MemoryClient, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryClient(maxSize, 0)
	c.now = clock.Now
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestMemoryClient_GetSet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 10)

	_, err := c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	got[0] = 'x'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("v"), again, "stored value must not alias returned slice")
}

func TestMemoryClient_Expiry(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestClient(t, 10)

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))

	clock.Advance(2 * time.Minute)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 2, c.Len(), "expired entries linger until swept")

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	_, err = c.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestMemoryClient_EvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 2)

	require.NoError(t, c.Set(ctx, "a", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("b"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("c"), time.Hour))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 2, c.Len())

	// Overwriting an existing key does not evict.
	require.NoError(t, c.Set(ctx, "c", []byte("c2"), time.Hour))
	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, 10)

	for _, k := range []string{"session:a", "session:b", "reply:a"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Hour))
	}

	require.NoError(t, c.DeleteByPrefix(ctx, "session:"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "reply:a"))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryClient_BackgroundSweep(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(10, 10*time.Millisecond)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryClient_CloseIdempotent(t *testing.T) {
	c := NewMemoryClient(1, time.Second)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "reply:s1:hello", Key("reply", "s1", "hello"))
	assert.Equal(t, "", Key())
}
