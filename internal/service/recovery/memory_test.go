package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryBackend_SetGetDelete(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	_, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Set(ctx, "k", "v1", time.Minute))
	require.NoError(t, b.Set(ctx, "k", "v2", time.Minute))
	v, ok, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, b.Delete(ctx, "k", "missing"))
	_, ok, _ = b.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, "memory", b.Name())
}

func TestMemoryBackend_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := newMemoryBackend(time.Hour, clock.Now)
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "k", "v", 10*time.Minute))
	clock.Advance(9 * time.Minute)
	_, ok, _ := b.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Minute)
	_, ok, _ = b.Get(ctx, "k")
	assert.False(t, ok)

	assert.Equal(t, 1, b.Len())
	b.sweep()
	assert.Equal(t, 0, b.Len())
}

func TestMemoryBackend_CleanupGoroutine(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := newMemoryBackend(5*time.Millisecond, clock.Now)
	defer b.Close()

	require.NoError(t, b.Set(context.Background(), "k", "v", time.Second))
	clock.Advance(2 * time.Second)

	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryBackend_CloseTwice(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestMemoryBackend_Concurrent(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%8))
			_ = b.Set(ctx, key, "v", time.Minute)
			_, _, _ = b.Get(ctx, key)
			_ = b.Delete(ctx, key)
		}(i)
	}
	wg.Wait()
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(Config{Type: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Name())
	require.NoError(t, b.Close())

	b, err = NewBackend(Config{})
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = NewBackend(Config{Type: "etcd"})
	assert.Error(t, err)

	_, err = NewBackend(Config{Type: "redis"})
	assert.Error(t, err)
}
