// Package customer fetches the customer list campaigns are sent to.
package customer

import (
	"context"
	"errors"

	"github.com/dzerik/campaign-portal/internal/model"
)

var (
	ErrInvalidPayload = errors.New("invalid data format: expected an array")
	ErrUnavailable    = errors.New("customer source unavailable")
)

// Source lists customers.
type Source interface {
	List(ctx context.Context) ([]model.Customer, error)
	Name() string
	Close() error
}

// FetchRecorder counts customer list fetches.
type FetchRecorder interface {
	RecordCustomerFetch(source, status string)
}

func record(r FetchRecorder, source string, err error) {
	if r == nil {
		return
	}
	status := "ok"
	switch {
	case errors.Is(err, ErrInvalidPayload):
		status = "invalid_payload"
	case err != nil:
		status = "error"
	}
	r.RecordCustomerFetch(source, status)
}

// Select returns the customers whose id is in ids, in list order. An empty
// ids selects every customer. Unknown ids are ignored.
func Select(all []model.Customer, ids []string) []model.Customer {
	if len(ids) == 0 {
		return all
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make([]model.Customer, 0, len(ids))
	for _, c := range all {
		if _, ok := want[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}
