// Package circuitbreaker guards outbound collaborators with sony/gobreaker
// breakers, one per named service.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/pkg/logger"
)

// Service names used by the portal's outbound clients.
const (
	ServiceIdentity  = "identity"
	ServiceLLM       = "llm"
	ServiceCustomers = "customers"
	ServiceWebhook   = "webhook"
)

// ErrOpen is returned without calling out while a breaker is open or its
// half-open probe budget is spent.
var ErrOpen = errors.New("circuit breaker open")

// Config holds circuit breaker configuration.
type Config struct {
	Enabled  bool                `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Default  Settings            `yaml:"default" mapstructure:"default" json:"default"`
	Services map[string]Settings `yaml:"services" mapstructure:"services" json:"services,omitempty"`
}

// Settings holds settings for a single breaker.
type Settings struct {
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32 `yaml:"max_requests" mapstructure:"max_requests" json:"max_requests"`
	// Interval clears the closed-state counts; zero never clears.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" json:"interval"`
	// Timeout is how long the breaker stays open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	// FailureThreshold is the consecutive failure count that opens the breaker.
	FailureThreshold uint32 `yaml:"failure_threshold" mapstructure:"failure_threshold" json:"failure_threshold"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Default: Settings{
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Services: map[string]Settings{},
	}
}

// Manager lazily creates one breaker per service name.
type Manager struct {
	cfg      Config
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, breakers: make(map[string]*gobreaker.CircuitBreaker[any])}
}

// Enabled reports whether breakers are active.
func (m *Manager) Enabled() bool {
	return m != nil && m.cfg.Enabled
}

func (m *Manager) breaker(name string) *gobreaker.CircuitBreaker[any] {
	m.mu.RLock()
	cb, ok := m.breakers[name]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok = m.breakers[name]; ok {
		return cb
	}

	settings := m.cfg.Default
	if s, ok := m.cfg.Services[name]; ok {
		settings = s
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// A caller giving up is not a failure of the collaborator.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit breaker state changed",
				zap.String("service", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	m.breakers[name] = cb
	return cb
}

// Do runs fn through the breaker named name. With a nil or disabled manager
// fn is called directly.
func Do[T any](ctx context.Context, m *Manager, name string, fn func(context.Context) (T, error)) (T, error) {
	if !m.Enabled() {
		return fn(ctx)
	}
	res, err := m.breaker(name).Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrOpen, err)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}

// State returns the state of the named breaker.
func (m *Manager) State(name string) gobreaker.State {
	return m.breaker(name).State()
}

// States returns the state of every breaker created so far, by name.
func (m *Manager) States() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = cb.State().String()
	}
	return out
}
