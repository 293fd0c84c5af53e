package config

import (
	"fmt"
	"maps"

	"gopkg.in/yaml.v3"
)

const redacted = "[REDACTED]"

// Redacted returns a copy of cfg with secrets masked.
func Redacted(cfg *Config) *Config {
	out := *cfg

	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Recovery.EncryptionKey)
	mask(&out.Recovery.Redis.Password)
	mask(&out.Identity.AnonKey)
	mask(&out.Identity.JWTSecret)
	mask(&out.Customers.SQL.DSN)
	mask(&out.LLM.APIKey)

	// Header values often carry tokens.
	out.Webhook.Headers = maskValues(cfg.Webhook.Headers)
	out.Observability.Tracing.Headers = maskValues(cfg.Observability.Tracing.Headers)

	return &out
}

func maskValues(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := maps.Clone(in)
	for k := range out {
		out[k] = redacted
	}
	return out
}

// DumpYAML renders the effective configuration with secrets masked.
func DumpYAML(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(Redacted(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
