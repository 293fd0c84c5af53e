// Package tracing configures OpenTelemetry tracing with an OTLP exporter.
package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dzerik/campaign-portal"

// Config represents tracing configuration.
type Config struct {
	Enabled        bool              `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	ServiceName    string            `yaml:"service_name" mapstructure:"service_name" json:"service_name"`
	ServiceVersion string            `yaml:"service_version" mapstructure:"service_version" json:"service_version,omitempty"`
	Environment    string            `yaml:"environment" mapstructure:"environment" json:"environment,omitempty"`
	Endpoint       string            `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	// Protocol is grpc or http.
	Protocol string `yaml:"protocol" mapstructure:"protocol" json:"protocol"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure" json:"insecure"`
	// SamplingRatio is between 0 and 1.
	SamplingRatio float64           `yaml:"sampling_ratio" mapstructure:"sampling_ratio" json:"sampling_ratio"`
	Headers       map[string]string `yaml:"headers" mapstructure:"headers" json:"headers,omitempty"`
}

// DefaultConfig returns tracing disabled with local collector defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "campaign-portal",
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4317",
		Protocol:       "grpc",
		Insecure:       true,
		SamplingRatio:  1.0,
	}
}

// Provider owns the SDK tracer provider when tracing is enabled.
type Provider struct {
	sdk *sdktrace.TracerProvider
}

var (
	mu     sync.RWMutex
	tracer trace.Tracer = otel.Tracer(instrumentationName)
)

// Init installs the global tracer provider. With tracing disabled the
// returned Provider is inert and spans are no-ops.
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SamplingRatio))),
	)
	Install(tp)

	return &Provider{sdk: tp}, nil
}

// Install makes tp the global provider and sets W3C propagation.
func Install(tp trace.TracerProvider) {
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	mu.Lock()
	tracer = tp.Tracer(instrumentationName)
	mu.Unlock()
}

func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}

// Start starts a span on the portal tracer.
func Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	mu.RLock()
	t := tracer
	mu.RUnlock()
	return t.Start(ctx, name, opts...)
}

// Attribute keys used by portal spans.
var (
	AttrTabID            = attribute.Key("portal.tab_id")
	AttrRedirectDecision = attribute.Key("portal.redirect.decision")
	AttrRedirectReason   = attribute.Key("portal.redirect.reason")
	AttrLLMProvider      = attribute.Key("portal.llm.provider")
	AttrRecipients       = attribute.Key("portal.campaign.recipients")
	AttrRequestID        = attribute.Key("request.id")
)
