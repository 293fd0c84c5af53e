package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
)

type deliveryCounter map[string]int

func (d deliveryCounter) RecordWebhookDelivery(status string) { d[status]++ }

func TestSender_Send(t *testing.T) {
	var got Message
	var secret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		secret = r.Header.Get("X-Webhook-Secret")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := deliveryCounter{}
	s := NewSender(Options{URL: srv.URL, Headers: map[string]string{"X-Webhook-Secret": "s3"}}, nil, rec)

	msg := Message{Subject: "Hi", Body: "<p>Body</p>", To: "ada@example.com"}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, msg, got)
	assert.Equal(t, "s3", secret)
	assert.Equal(t, 1, rec["ok"])
}

func TestSender_Wire(t *testing.T) {
	raw, err := json.Marshal(Message{Subject: "s", Body: "b", To: "t@x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"s","body":"b","to":"t@x"}`, string(raw))
}

func TestSender_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"client error", http.StatusBadRequest},
		{"server error", http.StatusInternalServerError},
		{"redirect", http.StatusNotModified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			rec := deliveryCounter{}
			err := NewSender(Options{URL: srv.URL}, nil, rec).Send(context.Background(), Message{To: "a@b.c"})
			assert.ErrorIs(t, err, ErrDeliveryFailed)
			assert.Equal(t, 1, rec["failed"])
		})
	}
}

func TestSender_NotConfigured(t *testing.T) {
	s := NewSender(Options{}, nil, nil)
	assert.False(t, s.Configured())
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNotConfigured)
}

func TestSender_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	breakers := circuitbreaker.NewManager(circuitbreaker.Config{
		Enabled: true,
		Default: circuitbreaker.Settings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1},
	})
	s := NewSender(Options{URL: srv.URL}, breakers, nil)
	for i := 0; i < 3; i++ {
		err := s.Send(context.Background(), Message{To: "a@b.c"})
		require.ErrorIs(t, err, ErrDeliveryFailed)
		require.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}
}

func TestSender_BreakerOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rec := deliveryCounter{}
	breakers := circuitbreaker.NewManager(circuitbreaker.Config{
		Enabled: true,
		Default: circuitbreaker.Settings{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 1},
	})
	s := NewSender(Options{URL: srv.URL}, breakers, rec)

	require.ErrorIs(t, s.Send(context.Background(), Message{To: "a@b.c"}), ErrDeliveryFailed)
	err := s.Send(context.Background(), Message{To: "a@b.c"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 1, rec["circuit_open"])
}
