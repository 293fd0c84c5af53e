// Package ratelimit provides per-client HTTP rate limiting backed by
// ulule/limiter, in memory or in Redis.
package ratelimit

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/pkg/logger"
)

const storePrefix = "campaignportal:ratelimit"

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	// Rate is '<requests>-<period>', e.g. '100-S' or '30-M'.
	Rate string `yaml:"rate" mapstructure:"rate" json:"rate"`
	// TrustForwardedFor keys clients by X-Forwarded-For / X-Real-IP.
	TrustForwardedFor bool     `yaml:"trust_forwarded_for" mapstructure:"trust_forwarded_for" json:"trust_forwarded_for"`
	ExcludePaths      []string `yaml:"exclude_paths" mapstructure:"exclude_paths" json:"exclude_paths,omitempty"`
	// EndpointRates overrides Rate for request paths starting with the key.
	// The longest matching prefix wins.
	EndpointRates map[string]string `yaml:"endpoint_rates" mapstructure:"endpoint_rates" json:"endpoint_rates,omitempty"`
	// Headers adds X-RateLimit-* response headers.
	Headers bool `yaml:"headers" mapstructure:"headers" json:"headers"`
	// FailClose rejects requests when the limiter store errors.
	FailClose bool `yaml:"fail_close" mapstructure:"fail_close" json:"fail_close"`
}

// DefaultConfig returns default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Rate:              "100-S",
		TrustForwardedFor: true,
		ExcludePaths:      []string{"/health", "/ready", "/metrics", "/static/"},
		EndpointRates: map[string]string{
			"/api/campaigns": "30-M",
		},
		Headers: true,
	}
}

// Limiter applies the configured rates.
type Limiter struct {
	cfg       Config
	store     limiter.Store
	base      *limiter.Limiter
	prefixes  []string
	endpoints map[string]*limiter.Limiter
}

// NewLimiter creates a Limiter. A non-nil client shares counters across
// instances through Redis; otherwise counters live in memory.
func NewLimiter(cfg Config, client redis.UniversalClient) (*Limiter, error) {
	var (
		store limiter.Store
		err   error
	)
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: storePrefix})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: storePrefix})
	}

	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", cfg.Rate, err)
	}

	l := &Limiter{
		cfg:       cfg,
		store:     store,
		base:      limiter.New(store, rate),
		endpoints: make(map[string]*limiter.Limiter, len(cfg.EndpointRates)),
	}
	for prefix, formatted := range cfg.EndpointRates {
		r, err := limiter.NewRateFromFormatted(formatted)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q for %s: %w", formatted, prefix, err)
		}
		l.endpoints[prefix] = limiter.New(store, r)
		l.prefixes = append(l.prefixes, prefix)
	}
	sort.Slice(l.prefixes, func(i, j int) bool { return len(l.prefixes[i]) > len(l.prefixes[j]) })

	return l, nil
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.cfg.Enabled || l.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		instance, bucket := l.limiterFor(r.URL.Path)
		key := bucket + "|" + l.clientKey(r)

		res, err := instance.Get(r.Context(), key)
		if err != nil {
			logger.FromContext(r.Context()).Error("rate limiter error", zap.Error(err))
			if l.cfg.FailClose {
				writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if l.cfg.Headers {
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
		}

		if res.Reached {
			logger.FromContext(r.Context()).Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.Int64("limit", res.Limit),
			)
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) limiterFor(path string) (*limiter.Limiter, string) {
	for _, prefix := range l.prefixes {
		if strings.HasPrefix(path, prefix) {
			return l.endpoints[prefix], prefix
		}
	}
	return l.base, "*"
}

func (l *Limiter) clientKey(r *http.Request) string {
	if l.cfg.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *Limiter) excluded(path string) bool {
	for _, p := range l.cfg.ExcludePaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "status": status})
}
