// Package metrics provides Prometheus metrics for the campaign-portal service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campaign_portal"

// Metrics holds all Prometheus metrics for the campaign-portal service.
type Metrics struct {
	// Redirect recovery
	RedirectDecisionsTotal   *prometheus.CounterVec
	RecoveryStoreErrorsTotal *prometheus.CounterVec

	// Outbound collaborators
	IdentityRequestsTotal   *prometheus.CounterVec
	IdentityRequestDuration *prometheus.HistogramVec
	LLMRequestsTotal        *prometheus.CounterVec
	LLMRequestDuration      *prometheus.HistogramVec
	CustomerFetchTotal      *prometheus.CounterVec
	WebhookDeliveriesTotal  *prometheus.CounterVec

	// Campaigns
	CampaignSendsTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	HTTPResponseSize     *prometheus.HistogramVec

	Registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	reg.MustRegister(prometheus.NewBuildInfoCollector())

	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		RedirectDecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirect_decisions_total",
				Help:      "Bootstrap redirect decisions by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		RecoveryStoreErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "recovery_store_errors_total",
				Help:      "Recovery store backend errors that were degraded to no-op",
			},
			[]string{"backend", "operation"},
		),

		IdentityRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "identity_requests_total",
				Help:      "Requests to the identity provider",
			},
			[]string{"operation", "status"},
		),
		IdentityRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "identity_request_duration_seconds",
				Help:      "Identity provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Language model completion requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Language model completion duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		CustomerFetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "customer_fetch_total",
				Help:      "Customer list fetches by source",
			},
			[]string{"source", "status"},
		),
		WebhookDeliveriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_deliveries_total",
				Help:      "Outbound campaign webhook deliveries",
			},
			[]string{"status"},
		),

		CampaignSendsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "campaign_sends_total",
				Help:      "Campaign dispatches by outcome",
			},
			[]string{"outcome"},
		),

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		HTTPResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
	}
}

// Handler returns an HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		Registry:          m.Registry,
		EnableOpenMetrics: true,
	})
}

// RecordRedirectDecision records one bootstrap decision.
func (m *Metrics) RecordRedirectDecision(kind, reason string) {
	m.RedirectDecisionsTotal.WithLabelValues(kind, reason).Inc()
}

// RecordStoreError records a degraded recovery store operation.
func (m *Metrics) RecordStoreError(backend, operation string) {
	m.RecoveryStoreErrorsTotal.WithLabelValues(backend, operation).Inc()
}

// RecordIdentityRequest records an identity provider call.
func (m *Metrics) RecordIdentityRequest(operation, status string, seconds float64) {
	m.IdentityRequestsTotal.WithLabelValues(operation, status).Inc()
	m.IdentityRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordLLMRequest records a completion call.
func (m *Metrics) RecordLLMRequest(provider, status string, seconds float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(seconds)
}

// RecordCustomerFetch records a customer list fetch.
func (m *Metrics) RecordCustomerFetch(source, status string) {
	m.CustomerFetchTotal.WithLabelValues(source, status).Inc()
}

// RecordWebhookDelivery records one webhook POST.
func (m *Metrics) RecordWebhookDelivery(status string) {
	m.WebhookDeliveriesTotal.WithLabelValues(status).Inc()
}

// RecordCampaignSend records a campaign dispatch outcome.
func (m *Metrics) RecordCampaignSend(outcome string) {
	m.CampaignSendsTotal.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, seconds, size float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(size)
}
