package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failing(context.Context) (string, error) { return "", errUpstream }

func TestDo_PassesResult(t *testing.T) {
	m := NewManager(DefaultConfig())
	got, err := Do(context.Background(), m, ServiceLLM, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, gobreaker.StateClosed, m.State(ServiceLLM))
}

func TestDo_OpensAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Services[ServiceWebhook] = Settings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 2}
	m := NewManager(cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := Do(ctx, m, ServiceWebhook, failing)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, gobreaker.StateOpen, m.State(ServiceWebhook))

	called := false
	_, err := Do(ctx, m, ServiceWebhook, func(context.Context) (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	// Other services are unaffected.
	assert.Equal(t, gobreaker.StateClosed, m.State(ServiceLLM))
	assert.Equal(t, "open", m.States()[ServiceWebhook])
}

func TestDo_CanceledDoesNotTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default.FailureThreshold = 1
	m := NewManager(cfg)

	_, err := Do(context.Background(), m, ServiceCustomers, func(context.Context) (int, error) {
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, m.State(ServiceCustomers))
}

func TestDo_HalfOpenRecovers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Default = Settings{MaxRequests: 1, Timeout: 20 * time.Millisecond, FailureThreshold: 1}
	m := NewManager(cfg)
	ctx := context.Background()

	_, _ = Do(ctx, m, ServiceIdentity, failing)
	require.Equal(t, gobreaker.StateOpen, m.State(ServiceIdentity))

	time.Sleep(30 * time.Millisecond)
	_, err := Do(ctx, m, ServiceIdentity, func(context.Context) (string, error) { return "up", nil })
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, m.State(ServiceIdentity))
}

func TestDo_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.Default.FailureThreshold = 1
	m := NewManager(cfg)

	for i := 0; i < 3; i++ {
		_, err := Do(context.Background(), m, ServiceLLM, failing)
		assert.ErrorIs(t, err, errUpstream)
	}

	var nilManager *Manager
	got, err := Do(context.Background(), nilManager, ServiceLLM, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}
