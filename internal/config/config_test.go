package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Server.HTTPPort", cfg.Server.HTTPPort, 8080},
		{"Server.MaxBodyBytes", cfg.Server.MaxBodyBytes, int64(1 << 20)},
		{"Redirect.DevHost", cfg.Redirect.DevHost, "localhost:3000"},
		{"Recovery.Store", cfg.Recovery.Store, "memory"},
		{"Recovery.TTL", cfg.Recovery.TTL, 10 * time.Minute},
		{"Recovery.Redis.KeyPrefix", cfg.Recovery.Redis.KeyPrefix, "campaignportal:recovery:"},
		{"Customers.Source", cfg.Customers.Source, "http"},
		{"Customers.SQL.Table", cfg.Customers.SQL.Table, "customers"},
		{"LLM.Provider", cfg.LLM.Provider, "groq"},
		{"LLM.Model", cfg.LLM.Model, "llama-3.1-8b-instant"},
		{"LLM.BaseURL", cfg.LLM.BaseURL, "https://api.groq.com/openai/v1"},
		{"Campaign.SendConcurrency", cfg.Campaign.SendConcurrency, 8},
		{"Observability.Metrics.Path", cfg.Observability.Metrics.Path, "/metrics"},
		{"Resilience.RateLimit.Rate", cfg.Resilience.RateLimit.Rate, "100-S"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestApplyDefaults_ProviderModels(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "gemini"}}
	applyDefaults(cfg)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.BaseURL)

	cfg = &Config{LLM: LLMConfig{Provider: "openai", Model: "custom"}}
	applyDefaults(cfg)
	assert.Equal(t, "custom", cfg.LLM.Model)
	assert.Equal(t, "https://api.openai.com/v1", cfg.LLM.BaseURL)
}

func TestLoadFromString(t *testing.T) {
	cfg, err := LoadFromString(`
server:
  http_port: 9090
redirect:
  dev_host: "localhost:5173"
recovery:
  store: redis
  ttl: 5m
  redis:
    addresses: ["redis:6379"]
identity:
  url: "https://abc.supabase.co/"
  anon_key: "anon"
  providers: [google, github]
llm:
  provider: gemini
  temperature: 0.2
resilience:
  rate_limit:
    rate: "10-S"
    endpoint_rates:
      /api/campaigns/send: "5-M"
  circuit_breaker:
    services:
      webhook:
        failure_threshold: 2
        timeout: 10s
`)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:5173", cfg.Redirect.DevHost)
	assert.Equal(t, "redis", cfg.Recovery.Store)
	assert.Equal(t, 5*time.Minute, cfg.Recovery.TTL)
	assert.Equal(t, []string{"redis:6379"}, cfg.Recovery.Redis.Addresses)
	assert.Equal(t, "https://abc.supabase.co", cfg.Identity.URL)
	assert.True(t, cfg.Identity.Configured())
	assert.Equal(t, []string{"google", "github"}, cfg.Identity.Providers)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, "10-S", cfg.Resilience.RateLimit.Rate)
	assert.Equal(t, "5-M", cfg.Resilience.RateLimit.EndpointRates["/api/campaigns/send"])
	assert.Equal(t, uint32(2), cfg.Resilience.CircuitBreaker.Services["webhook"].FailureThreshold)
	assert.Equal(t, 10*time.Second, cfg.Resilience.CircuitBreaker.Services["webhook"].Timeout)
	assert.True(t, cfg.Resilience.CircuitBreaker.Enabled)

	// Defaults survive a partial file.
	assert.Equal(t, 8, cfg.Campaign.SendConcurrency)
	assert.Equal(t, "http://localhost:5050/api/customers", cfg.Customers.HTTP.URL)
}

func TestLoadFromString_Invalid(t *testing.T) {
	_, err := LoadFromString("server: [")
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 7000\n"), 0o600))

	t.Setenv("CAMPAIGN_PORTAL_REDIRECT_DEV_HOST", "localhost:4000")
	t.Setenv("VITE_SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("VITE_SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("VITE_GROQ_API_KEY", "gsk_test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.HTTPPort)
	assert.Equal(t, "localhost:4000", cfg.Redirect.DevHost)
	assert.Equal(t, "https://proj.supabase.co", cfg.Identity.URL)
	assert.Equal(t, "anon-key", cfg.Identity.AnonKey)
	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("CAMPAIGN_PORTAL_SERVER_HTTP_PORT", "8181")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.HTTPPort)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("CP_TEST_DOTENV=from-file\nCP_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("CP_TEST_PRESET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("CP_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(env, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("CP_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("CP_TEST_PRESET"))
}
