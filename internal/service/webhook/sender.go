// Package webhook delivers campaign emails through an outbound webhook.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

var (
	ErrNotConfigured  = errors.New("webhook URL is not configured")
	ErrDeliveryFailed = errors.New("webhook delivery failed")
)

// Message is one email to one recipient.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	To      string `json:"to"`
}

// DeliveryRecorder counts webhook deliveries.
type DeliveryRecorder interface {
	RecordWebhookDelivery(status string)
}

// Options configures a Sender.
type Options struct {
	URL     string
	Timeout time.Duration
	// Headers are added to every request, e.g. an authorization secret.
	Headers map[string]string
}

// Sender posts messages to the webhook.
type Sender struct {
	opts     Options
	client   *http.Client
	breakers *circuitbreaker.Manager
	recorder DeliveryRecorder
}

// NewSender creates a Sender.
func NewSender(opts Options, breakers *circuitbreaker.Manager, recorder DeliveryRecorder) *Sender {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Sender{
		opts:     opts,
		client:   tracing.Client(nil),
		breakers: breakers,
		recorder: recorder,
	}
}

// Configured reports whether a webhook URL is set.
func (s *Sender) Configured() bool {
	return s.opts.URL != ""
}

// Send delivers msg. Any non-2xx answer is ErrDeliveryFailed.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}

	status, err := circuitbreaker.Do(ctx, s.breakers, circuitbreaker.ServiceWebhook, func(ctx context.Context) (int, error) {
		return s.post(ctx, msg)
	})

	outcome := "ok"
	switch {
	case errors.Is(err, circuitbreaker.ErrOpen):
		outcome = "circuit_open"
	case err != nil || status >= 300:
		outcome = "failed"
	}
	if s.recorder != nil {
		s.recorder.RecordWebhookDelivery(outcome)
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, status)
	}
	return nil
}

// post returns the status of a delivered request. Server errors and
// transport failures are errors so that the breaker sees them.
func (s *Sender) post(ctx context.Context, msg Message) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
