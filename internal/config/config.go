package config

import (
	"time"

	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/resilience/ratelimit"
)

// Config represents the main application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server" json:"server"`
	Redirect      RedirectConfig      `yaml:"redirect" mapstructure:"redirect" json:"redirect"`
	Recovery      RecoveryConfig      `yaml:"recovery" mapstructure:"recovery" json:"recovery"`
	Identity      IdentityConfig      `yaml:"identity" mapstructure:"identity" json:"identity"`
	DevMode       DevModeConfig       `yaml:"dev_mode" mapstructure:"dev_mode" json:"dev_mode"`
	Customers     CustomersConfig     `yaml:"customers" mapstructure:"customers" json:"customers"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm" json:"llm"`
	Webhook       WebhookConfig       `yaml:"webhook" mapstructure:"webhook" json:"webhook"`
	Campaign      CampaignConfig      `yaml:"campaign" mapstructure:"campaign" json:"campaign"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability" json:"observability"`
	Resilience    ResilienceConfig    `yaml:"resilience" mapstructure:"resilience" json:"resilience"`
	Log           LogConfig           `yaml:"log" mapstructure:"log" json:"log"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `yaml:"level" mapstructure:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Development bool   `yaml:"development" mapstructure:"development" json:"development"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" mapstructure:"http_port" json:"http_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64      `yaml:"max_body_bytes" mapstructure:"max_body_bytes" json:"max_body_bytes"`
	TLS          TLSConfig  `yaml:"tls" mapstructure:"tls" json:"tls"`
	CORS         CORSConfig `yaml:"cors" mapstructure:"cors" json:"cors"`
}

// TLSConfig represents TLS configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Cert    string `yaml:"cert" mapstructure:"cert" json:"cert,omitempty"`
	Key     string `yaml:"key" mapstructure:"key" json:"key,omitempty"`
}

// CORSConfig represents cross-origin settings for the /api routes
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins" json:"allowed_origins,omitempty"`
}

// RedirectConfig configures callback redirect recovery
type RedirectConfig struct {
	// DevHost is the host:port a misconfigured provider sends callbacks to.
	DevHost string `yaml:"dev_host" mapstructure:"dev_host" json:"dev_host"`
}

// RecoveryConfig configures the tab-scoped recovery store
type RecoveryConfig struct {
	Store string        `yaml:"store" mapstructure:"store" json:"store" jsonschema:"enum=memory,enum=redis"`
	TTL   time.Duration `yaml:"ttl" mapstructure:"ttl" json:"ttl"`
	// EncryptionKey seals staged fragments at rest (32 bytes, raw or base64).
	EncryptionKey string      `yaml:"encryption_key" mapstructure:"encryption_key" json:"encryption_key,omitempty"`
	Redis         RedisConfig `yaml:"redis" mapstructure:"redis" json:"redis"`
}

// RedisConfig represents Redis connection configuration
type RedisConfig struct {
	Addresses  []string `yaml:"addresses" mapstructure:"addresses" json:"addresses,omitempty"`
	Password   string   `yaml:"password" mapstructure:"password" json:"password,omitempty"`
	DB         int      `yaml:"db" mapstructure:"db" json:"db"`
	MasterName string   `yaml:"master_name" mapstructure:"master_name" json:"master_name,omitempty"`
	KeyPrefix  string   `yaml:"key_prefix" mapstructure:"key_prefix" json:"key_prefix"`
}

// IdentityConfig represents the hosted identity provider (Supabase GoTrue)
type IdentityConfig struct {
	URL     string `yaml:"url" mapstructure:"url" json:"url,omitempty"`
	AnonKey string `yaml:"anon_key" mapstructure:"anon_key" json:"anon_key,omitempty"`
	// JWTSecret enables local verification of access tokens.
	JWTSecret   string        `yaml:"jwt_secret" mapstructure:"jwt_secret" json:"jwt_secret,omitempty"`
	JWTAudience string        `yaml:"jwt_audience" mapstructure:"jwt_audience" json:"jwt_audience"`
	Providers   []string      `yaml:"providers" mapstructure:"providers" json:"providers,omitempty"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
}

// Configured reports whether both the project URL and anon key are set.
func (c IdentityConfig) Configured() bool {
	return c.URL != "" && c.AnonKey != ""
}

// DevModeConfig represents development mode configuration
type DevModeConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	User    DevUserConfig `yaml:"user" mapstructure:"user" json:"user"`
}

// DevUserConfig is the fixed user served in development mode
type DevUserConfig struct {
	ID    string `yaml:"id" mapstructure:"id" json:"id"`
	Email string `yaml:"email" mapstructure:"email" json:"email"`
	Name  string `yaml:"name" mapstructure:"name" json:"name"`
}

// CustomersConfig selects where the customer list comes from
type CustomersConfig struct {
	Source string         `yaml:"source" mapstructure:"source" json:"source" jsonschema:"enum=http,enum=sql"`
	HTTP   HTTPSourceConf `yaml:"http" mapstructure:"http" json:"http"`
	SQL    SQLSourceConf  `yaml:"sql" mapstructure:"sql" json:"sql"`
}

// HTTPSourceConf configures the customer backend
type HTTPSourceConf struct {
	URL     string        `yaml:"url" mapstructure:"url" json:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
}

// SQLSourceConf configures reading customers from PostgreSQL
type SQLSourceConf struct {
	DSN          string `yaml:"dsn" mapstructure:"dsn" json:"dsn,omitempty"`
	Table        string `yaml:"table" mapstructure:"table" json:"table"`
	MaxOpenConns int    `yaml:"max_open_conns" mapstructure:"max_open_conns" json:"max_open_conns"`
	Migrate      bool   `yaml:"migrate" mapstructure:"migrate" json:"migrate"`
}

// LLMConfig configures the language model
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider" json:"provider" jsonschema:"enum=groq,enum=openai,enum=gemini"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key" json:"api_key,omitempty"`
	Model       string        `yaml:"model" mapstructure:"model" json:"model"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
}

// WebhookConfig configures campaign dispatch
type WebhookConfig struct {
	URL     string            `yaml:"url" mapstructure:"url" json:"url,omitempty"`
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers" json:"headers,omitempty"`
}

// CampaignConfig configures campaign generation and sending
type CampaignConfig struct {
	SendConcurrency int `yaml:"send_concurrency" mapstructure:"send_concurrency" json:"send_concurrency"`
}

// ObservabilityConfig represents observability configuration
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing" json:"tracing"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Path    string `yaml:"path" mapstructure:"path" json:"path"`
}

// TracingConfig represents distributed tracing configuration
type TracingConfig struct {
	Enabled       bool              `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Endpoint      string            `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	Protocol      string            `yaml:"protocol" mapstructure:"protocol" json:"protocol" jsonschema:"enum=grpc,enum=http"`
	Insecure      bool              `yaml:"insecure" mapstructure:"insecure" json:"insecure"`
	SamplingRatio float64           `yaml:"sampling_ratio" mapstructure:"sampling_ratio" json:"sampling_ratio"`
	Headers       map[string]string `yaml:"headers" mapstructure:"headers" json:"headers,omitempty"`
}

// ResilienceConfig holds resilience configuration
type ResilienceConfig struct {
	RateLimit      ratelimit.Config      `yaml:"rate_limit" mapstructure:"rate_limit" json:"rate_limit"`
	CircuitBreaker circuitbreaker.Config `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"circuit_breaker"`
}
