package recovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzerik/campaign-portal/internal/service/crypto"
	"github.com/dzerik/campaign-portal/internal/service/redirect"
)

type brokenBackend struct{}

var errUnavailable = errors.New("storage unavailable")

func (brokenBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, errUnavailable
}
func (brokenBackend) Set(context.Context, string, string, time.Duration) error { return errUnavailable }
func (brokenBackend) Delete(context.Context, ...string) error                  { return errUnavailable }
func (brokenBackend) Close() error                                             { return nil }
func (brokenBackend) Name() string                                             { return "broken" }

type errorCounter struct {
	mu  sync.Mutex
	ops []string
}

func (c *errorCounter) RecordStoreError(backend, op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, backend+"/"+op)
}

func newMemoryStore(t *testing.T, opts Options) (*Store, *MemoryBackend) {
	t.Helper()
	b := NewMemoryBackend()
	t.Cleanup(func() { _ = b.Close() })
	return NewStore(b, opts), b
}

func TestTab_StageReadClear(t *testing.T) {
	s, _ := newMemoryStore(t, Options{})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	_, ok := tab.ReadStaged(ctx)
	assert.False(t, ok)

	tab.Stage(ctx, "access_token=a")
	tab.Stage(ctx, "access_token=b")
	staged, ok := tab.ReadStaged(ctx)
	assert.True(t, ok)
	assert.Equal(t, "access_token=b", staged)

	tab.SetInFlight(ctx, true)
	assert.True(t, tab.IsInFlight(ctx))

	tab.Clear(ctx)
	_, ok = tab.ReadStaged(ctx)
	assert.False(t, ok)
	assert.False(t, tab.IsInFlight(ctx))
}

func TestTab_InFlightRemovedWhenUnset(t *testing.T) {
	s, b := newMemoryStore(t, Options{})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	tab.SetInFlight(ctx, true)
	assert.Equal(t, 1, b.Len())
	tab.SetInFlight(ctx, false)
	assert.False(t, tab.IsInFlight(ctx))
	assert.Equal(t, 0, b.Len())
}

func TestTab_Isolation(t *testing.T) {
	s, _ := newMemoryStore(t, Options{})
	ctx := context.Background()

	s.Tab("a").Stage(ctx, "access_token=a")
	s.Tab("a").SetInFlight(ctx, true)

	_, ok := s.Tab("b").ReadStaged(ctx)
	assert.False(t, ok)
	assert.False(t, s.Tab("b").IsInFlight(ctx))
}

func TestTab_EmptyIDIsInert(t *testing.T) {
	s, b := newMemoryStore(t, Options{})
	ctx := context.Background()
	tab := s.Tab("")

	tab.Stage(ctx, "access_token=a")
	tab.SetInFlight(ctx, true)
	assert.Equal(t, 0, b.Len())
	assert.True(t, tab.Load(ctx).IsZero())
}

func TestTab_Encrypted(t *testing.T) {
	enc, err := crypto.NewEncryptor([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	s, b := newMemoryStore(t, Options{Encryptor: enc})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	tab.Stage(ctx, "access_token=secret&my-app.example.com")

	raw, ok, err := b.Get(ctx, tab.key(KeyStagedFragment))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, raw, "secret")

	staged, ok := tab.ReadStaged(ctx)
	assert.True(t, ok)
	assert.Equal(t, "access_token=secret&my-app.example.com", staged)
}

func TestTab_UndecryptableIsAbsent(t *testing.T) {
	enc, err := crypto.NewEncryptor([]byte("12345678901234567890123456789012"))
	require.NoError(t, err)
	counter := &errorCounter{}
	s, b := newMemoryStore(t, Options{Encryptor: enc, Errors: counter})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	require.NoError(t, b.Set(ctx, tab.key(KeyStagedFragment), "garbage", time.Minute))

	_, ok := tab.ReadStaged(ctx)
	assert.False(t, ok)
	assert.Equal(t, []string{"memory/read_staged"}, counter.ops)
}

func TestTab_BackendFailureDegrades(t *testing.T) {
	counter := &errorCounter{}
	s := NewStore(brokenBackend{}, Options{Errors: counter})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	assert.NotPanics(t, func() {
		tab.Stage(ctx, "access_token=a")
		tab.SetInFlight(ctx, true)
		tab.Clear(ctx)
	})
	_, ok := tab.ReadStaged(ctx)
	assert.False(t, ok)
	assert.False(t, tab.IsInFlight(ctx))

	assert.Equal(t, []string{
		"broken/stage",
		"broken/set_in_flight",
		"broken/clear",
		"broken/read_staged",
		"broken/is_in_flight",
	}, counter.ops)
}

func TestTab_LoadApply(t *testing.T) {
	s, b := newMemoryStore(t, Options{})
	ctx := context.Background()
	tab := s.Tab("tab-1")

	empty := tab.Load(ctx)
	assert.True(t, empty.IsZero())

	staged := redirect.Staged("access_token=a&my-app.example.com")
	tab.Apply(ctx, empty, staged)
	assert.Equal(t, staged, tab.Load(ctx))

	observed := staged
	observed.InFlight = false
	tab.Apply(ctx, staged, observed)
	assert.Equal(t, observed, tab.Load(ctx))

	tab.Apply(ctx, observed, redirect.RecoveryState{})
	assert.True(t, tab.Load(ctx).IsZero())
	assert.Equal(t, 0, b.Len())
}

func TestNewStore_DefaultTTL(t *testing.T) {
	s := NewStore(brokenBackend{}, Options{})
	assert.Equal(t, DefaultTTL, s.ttl)
	assert.Equal(t, "broken", s.Backend().Name())
}
