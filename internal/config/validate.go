package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors:\n  - " + strings.Join(msgs, "\n  - ")
}

var (
	hostPortPattern   = regexp.MustCompile(`^[A-Za-z0-9.\-]+(:[0-9]{1,5})?$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)
)

// Validate validates the configuration
func Validate(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		add("server.http_port", "must be between 1 and 65535, got %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.TLS.Enabled {
		if cfg.Server.TLS.Cert == "" {
			add("server.tls.cert", "required when TLS is enabled")
		}
		if cfg.Server.TLS.Key == "" {
			add("server.tls.key", "required when TLS is enabled")
		}
	}

	if !hostPortPattern.MatchString(cfg.Redirect.DevHost) {
		add("redirect.dev_host", "must be host[:port] without scheme or path, got '%s'", cfg.Redirect.DevHost)
	}

	switch cfg.Recovery.Store {
	case "memory":
	case "redis":
		if len(cfg.Recovery.Redis.Addresses) == 0 {
			add("recovery.redis.addresses", "required for Redis store")
		}
	default:
		add("recovery.store", "must be 'memory' or 'redis', got '%s'", cfg.Recovery.Store)
	}
	if cfg.Recovery.TTL <= 0 {
		add("recovery.ttl", "must be positive")
	}
	if cfg.Recovery.Store == "redis" && cfg.Recovery.EncryptionKey == "" && !cfg.DevMode.Enabled {
		add("recovery.encryption_key", "required with the redis store: staged fragments carry access tokens")
	}
	if cfg.Recovery.EncryptionKey != "" {
		if n := encryptionKeyLength(cfg.Recovery.EncryptionKey); n != 32 {
			add("recovery.encryption_key", "must be 32 bytes for AES-256 (raw or base64-encoded), got %d bytes", n)
		}
	}

	if cfg.Identity.URL != "" {
		validateURL(&errs, "identity.url", cfg.Identity.URL)
	}
	if cfg.DevMode.Enabled && cfg.DevMode.User.ID == "" {
		add("dev_mode.user.id", "required when dev mode is enabled")
	}

	switch cfg.Customers.Source {
	case "http":
		validateURL(&errs, "customers.http.url", cfg.Customers.HTTP.URL)
	case "sql":
		if cfg.Customers.SQL.DSN == "" {
			add("customers.sql.dsn", "required for SQL source")
		}
		if !identifierPattern.MatchString(cfg.Customers.SQL.Table) {
			add("customers.sql.table", "must be a plain or schema-qualified identifier, got '%s'", cfg.Customers.SQL.Table)
		}
		if cfg.Customers.SQL.Migrate && cfg.Customers.SQL.Table != "customers" {
			add("customers.sql.migrate", "migrations only manage the 'customers' table")
		}
	default:
		add("customers.source", "must be 'http' or 'sql', got '%s'", cfg.Customers.Source)
	}

	switch cfg.LLM.Provider {
	case "groq", "openai":
		validateURL(&errs, "llm.base_url", cfg.LLM.BaseURL)
	case "gemini":
	default:
		add("llm.provider", "must be 'groq', 'openai' or 'gemini', got '%s'", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		add("llm.temperature", "must be between 0 and 2, got %v", cfg.LLM.Temperature)
	}

	if cfg.Webhook.URL != "" {
		validateURL(&errs, "webhook.url", cfg.Webhook.URL)
	}
	if cfg.Campaign.SendConcurrency < 1 || cfg.Campaign.SendConcurrency > 64 {
		add("campaign.send_concurrency", "must be between 1 and 64, got %d", cfg.Campaign.SendConcurrency)
	}

	if t := cfg.Observability.Tracing; t.Enabled {
		if t.Protocol != "grpc" && t.Protocol != "http" {
			add("observability.tracing.protocol", "must be 'grpc' or 'http', got '%s'", t.Protocol)
		}
		if t.SamplingRatio < 0 || t.SamplingRatio > 1 {
			add("observability.tracing.sampling_ratio", "must be between 0 and 1, got %v", t.SamplingRatio)
		}
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be one of debug, info, warn, error, got '%s'", cfg.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(errs *ValidationErrors, field, raw string) {
	if raw == "" {
		*errs = append(*errs, ValidationError{Field: field, Message: "required"})
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %v", err)})
		return
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		*errs = append(*errs, ValidationError{Field: field, Message: fmt.Sprintf("must be an absolute http(s) URL, got '%s'", raw)})
	}
}

// encryptionKeyLength mirrors crypto.NewEncryptorFromString: a base64 value
// decoding to 32 bytes wins, raw bytes otherwise.
func encryptionKeyLength(key string) int {
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil && len(decoded) == 32 {
		return len(decoded)
	}
	return len(key)
}
