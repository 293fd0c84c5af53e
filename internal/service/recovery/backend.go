// Package recovery persists the redirect recovery handoff record per browser
// tab. Records survive one navigation and expire with the tab.
package recovery

import (
	"context"
	"fmt"
	"time"
)

const (
	// KeyStagedFragment holds the corrected fragment awaiting restoration.
	KeyStagedFragment = "staged_fragment"
	// KeyInFlight is set to "true" while a corrective navigation is pending.
	KeyInFlight = "in_flight"

	DefaultTTL = 10 * time.Minute
)

// Backend is a string key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// Close releases any resources held by the backend.
	Close() error
	// Name returns the backend type name.
	Name() string
}

// Config holds recovery store configuration.
type Config struct {
	// Type is the backend type: "memory" or "redis".
	Type string
	// TTL is the lifetime of a tab's record.
	TTL time.Duration
	// EncryptionKey, when set, seals the staged fragment at rest.
	EncryptionKey string
	Redis         RedisConfig
}

// RedisConfig holds Redis backend configuration.
type RedisConfig struct {
	Addresses  []string
	Password   string
	DB         int
	KeyPrefix  string
	MasterName string
}

// DefaultConfig returns the default recovery store configuration.
func DefaultConfig() Config {
	return Config{
		Type: "memory",
		TTL:  DefaultTTL,
		Redis: RedisConfig{
			KeyPrefix: "campaignportal:recovery:",
		},
	}
}

// NewBackend builds the backend selected by cfg.Type.
func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "redis":
		return NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown recovery store type %q", cfg.Type)
	}
}
