package customer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dzerik/campaign-portal/internal/model"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

const maxPayloadBytes = 32 << 20

// HTTPSource reads the customer list from the customer backend.
type HTTPSource struct {
	url      string
	timeout  time.Duration
	client   *http.Client
	breakers *circuitbreaker.Manager
	recorder FetchRecorder
}

// NewHTTPSource creates a source reading a JSON array from url.
func NewHTTPSource(url string, timeout time.Duration, breakers *circuitbreaker.Manager, recorder FetchRecorder) *HTTPSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		url:      url,
		timeout:  timeout,
		client:   tracing.Client(nil),
		breakers: breakers,
		recorder: recorder,
	}
}

// Name returns the source name
func (s *HTTPSource) Name() string {
	return "http"
}

// Close is a no-op.
func (s *HTTPSource) Close() error {
	return nil
}

// List fetches the customer list.
func (s *HTTPSource) List(ctx context.Context) ([]model.Customer, error) {
	ctx, span := tracing.Start(ctx, "customers.list")
	defer span.End()

	customers, err := circuitbreaker.Do(ctx, s.breakers, circuitbreaker.ServiceCustomers, s.fetch)
	record(s.recorder, s.Name(), err)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrInvalidPayload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return customers, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return decodeList(body)
}

func decodeList(body []byte) ([]model.Customer, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrInvalidPayload
	}
	var customers []model.Customer
	if err := json.Unmarshal(trimmed, &customers); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	return customers, nil
}
