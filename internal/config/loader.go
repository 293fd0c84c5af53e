package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/resilience/ratelimit"
)

// EnvPrefix prefixes every automatically bound environment variable.
const EnvPrefix = "CAMPAIGN_PORTAL"

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads configuration from a YAML file using viper. An empty path
// configures the service from defaults and the environment alone.
// Environment variables use the CAMPAIGN_PORTAL_ prefix with '.' mapped to '_'.
func Load(path string) (*Config, error) {
	v := NewViper()
	bindEnvVars(v)
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromString loads configuration from a YAML string (useful for testing).
func LoadFromString(yamlStr string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(yamlStr)); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// NewViper creates a viper instance with the portal's environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// bindEnvVars binds conventional unprefixed names, including the VITE_*
// names used by existing front-end deployments.
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("identity.url", "SUPABASE_URL", "VITE_SUPABASE_URL")
	_ = v.BindEnv("identity.anon_key", "SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY")
	_ = v.BindEnv("identity.jwt_secret", "SUPABASE_JWT_SECRET")

	_ = v.BindEnv("llm.api_key", "GROQ_API_KEY", "VITE_GROQ_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("webhook.url", "WEBHOOK_URL")
	_ = v.BindEnv("customers.http.url", "CUSTOMERS_URL")
	_ = v.BindEnv("customers.sql.dsn", "DATABASE_URL")

	_ = v.BindEnv("recovery.encryption_key", "ENCRYPTION_KEY")
	_ = v.BindEnv("recovery.redis.password", "REDIS_PASSWORD")

	_ = v.BindEnv("server.http_port", "HTTP_PORT", "PORT")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("dev_mode.enabled", "DEV_MODE")
}

// setDefaults registers every key with viper so that AutomaticEnv can
// override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.tls.enabled", false)

	v.SetDefault("redirect.dev_host", "localhost:3000")

	v.SetDefault("recovery.store", "memory")
	v.SetDefault("recovery.ttl", "10m")
	v.SetDefault("recovery.encryption_key", "")
	v.SetDefault("recovery.redis.key_prefix", "campaignportal:recovery:")

	v.SetDefault("identity.url", "")
	v.SetDefault("identity.anon_key", "")
	v.SetDefault("identity.jwt_secret", "")
	v.SetDefault("identity.jwt_audience", "authenticated")
	v.SetDefault("identity.providers", []string{"google"})
	v.SetDefault("identity.timeout", "10s")

	v.SetDefault("dev_mode.enabled", false)
	v.SetDefault("dev_mode.user.id", "00000000-0000-0000-0000-000000000001")
	v.SetDefault("dev_mode.user.email", "developer@localhost")
	v.SetDefault("dev_mode.user.name", "Developer")

	v.SetDefault("customers.source", "http")
	v.SetDefault("customers.http.url", "http://localhost:5050/api/customers")
	v.SetDefault("customers.http.timeout", "10s")
	v.SetDefault("customers.sql.dsn", "")
	v.SetDefault("customers.sql.table", "customers")
	v.SetDefault("customers.sql.max_open_conns", 10)
	v.SetDefault("customers.sql.migrate", false)

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", "15s")

	v.SetDefault("campaign.send_concurrency", 8)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.protocol", "grpc")
	v.SetDefault("observability.tracing.insecure", true)
	v.SetDefault("observability.tracing.sampling_ratio", 1.0)

	rl := ratelimit.DefaultConfig()
	v.SetDefault("resilience.rate_limit.enabled", rl.Enabled)
	v.SetDefault("resilience.rate_limit.rate", rl.Rate)
	v.SetDefault("resilience.rate_limit.trust_forwarded_for", rl.TrustForwardedFor)
	v.SetDefault("resilience.rate_limit.exclude_paths", rl.ExcludePaths)
	v.SetDefault("resilience.rate_limit.endpoint_rates", rl.EndpointRates)
	v.SetDefault("resilience.rate_limit.headers", rl.Headers)
	v.SetDefault("resilience.rate_limit.fail_close", rl.FailClose)

	cb := circuitbreaker.DefaultConfig()
	v.SetDefault("resilience.circuit_breaker.enabled", cb.Enabled)
	v.SetDefault("resilience.circuit_breaker.default.max_requests", cb.Default.MaxRequests)
	v.SetDefault("resilience.circuit_breaker.default.interval", cb.Default.Interval)
	v.SetDefault("resilience.circuit_breaker.default.timeout", cb.Default.Timeout)
	v.SetDefault("resilience.circuit_breaker.default.failure_threshold", cb.Default.FailureThreshold)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

var (
	defaultModels = map[string]string{
		"groq":   "llama-3.1-8b-instant",
		"openai": "gpt-4o-mini",
		"gemini": "gemini-2.0-flash",
	}
	defaultBaseURLs = map[string]string{
		"groq":   "https://api.groq.com/openai/v1",
		"openai": "https://api.openai.com/v1",
	}
)

// applyDefaults fills zero values left by explicit empty YAML entries.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Redirect.DevHost == "" {
		cfg.Redirect.DevHost = "localhost:3000"
	}

	if cfg.Recovery.Store == "" {
		cfg.Recovery.Store = "memory"
	}
	if cfg.Recovery.TTL == 0 {
		cfg.Recovery.TTL = 10 * time.Minute
	}
	if cfg.Recovery.Redis.KeyPrefix == "" {
		cfg.Recovery.Redis.KeyPrefix = "campaignportal:recovery:"
	}

	if cfg.Identity.Timeout == 0 {
		cfg.Identity.Timeout = 10 * time.Second
	}
	cfg.Identity.URL = strings.TrimRight(cfg.Identity.URL, "/")

	if cfg.Customers.Source == "" {
		cfg.Customers.Source = "http"
	}
	if cfg.Customers.SQL.Table == "" {
		cfg.Customers.SQL.Table = "customers"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "groq"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultModels[cfg.LLM.Provider]
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = defaultBaseURLs[cfg.LLM.Provider]
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}

	if cfg.Campaign.SendConcurrency <= 0 {
		cfg.Campaign.SendConcurrency = 8
	}

	if cfg.Observability.Metrics.Path == "" {
		cfg.Observability.Metrics.Path = "/metrics"
	}

	if cfg.Resilience.RateLimit.Rate == "" {
		cfg.Resilience.RateLimit.Rate = ratelimit.DefaultConfig().Rate
	}
	if cfg.Resilience.CircuitBreaker.Services == nil {
		cfg.Resilience.CircuitBreaker.Services = map[string]circuitbreaker.Settings{}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// MustLoad loads configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
