package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/handler"
	"github.com/dzerik/campaign-portal/internal/schema"
	"github.com/dzerik/campaign-portal/internal/service/customer"
	"github.com/dzerik/campaign-portal/internal/service/identity"
	"github.com/dzerik/campaign-portal/internal/service/metrics"
	"github.com/dzerik/campaign-portal/internal/service/recovery"
	"github.com/dzerik/campaign-portal/internal/ui"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/resilience/ratelimit"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// RouterDeps contains dependencies for router setup.
type RouterDeps struct {
	Config         *config.Config
	Metrics        *metrics.Metrics
	TracerProvider *tracing.Provider
	// RedisClient is nil unless the recovery store runs on Redis.
	RedisClient   redis.UniversalClient
	Identity      *identity.Manager
	RecoveryStore *recovery.Store
	Customers     customer.Source

	AuthHandler      *handler.AuthHandler
	BootstrapHandler *handler.BootstrapHandler
	CampaignHandler  *handler.CampaignHandler
	PortalHandler    *handler.PortalHandler
	HealthHandler    *handler.HealthHandler
}

// SetupRouter creates and configures chi router with all middleware and routes.
func SetupRouter(deps *RouterDeps) chi.Router {
	r := chi.NewRouter()

	applyGlobalMiddleware(r, deps)

	registerStaticRoutes(r)
	registerPortalRoutes(r, deps)
	registerAPIRoutes(r, deps)
	registerHealthRoutes(r, deps)
	registerMetricsRoutes(r, deps)
	registerAdminRoutes(r, deps)

	r.NotFound(deps.PortalHandler.HandleNotFound)

	return r
}

// applyGlobalMiddleware applies middleware stack to router.
func applyGlobalMiddleware(r chi.Router, deps *RouterDeps) {
	cfg := deps.Config

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(tracing.Middleware)

	r.Use(logger.RequestLogger)
	r.Use(logger.RecoveryLogger)
	r.Use(chimw.CleanPath)
	r.Use(chimw.Timeout(cfg.Server.WriteTimeout))
	r.Use(deps.Metrics.Middleware)

	if cfg.Resilience.RateLimit.Enabled {
		if limiter := createRateLimiter(cfg.Resilience.RateLimit, deps.RedisClient); limiter != nil {
			r.Use(limiter.Middleware)
			logger.L().Info("rate limiting enabled",
				zap.String("rate", cfg.Resilience.RateLimit.Rate),
				zap.Bool("shared", deps.RedisClient != nil),
			)
		}
	}

	if len(cfg.Server.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

// createRateLimiter creates rate limiter from config.
func createRateLimiter(cfg ratelimit.Config, client redis.UniversalClient) *ratelimit.Limiter {
	limiter, err := ratelimit.NewLimiter(cfg, client)
	if err != nil {
		logger.L().Error("failed to create rate limiter", zap.Error(err))
		return nil
	}
	return limiter
}

// registerStaticRoutes registers static file handlers.
func registerStaticRoutes(r chi.Router) {
	r.Handle("/static/*", ui.StaticFileHandler())
}

// registerPortalRoutes registers the page and the login redirect (public).
func registerPortalRoutes(r chi.Router, deps *RouterDeps) {
	r.Get("/", deps.PortalHandler.HandlePortal)
	r.Get("/login/{provider}", deps.AuthHandler.HandleLogin)
}

// registerAPIRoutes registers JSON API routes. Bootstrap and the auth
// endpoints are public; campaign routes require a session.
func registerAPIRoutes(r chi.Router, deps *RouterDeps) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/bootstrap", deps.BootstrapHandler.HandleBootstrap)
		r.Get("/auth/config", deps.AuthHandler.HandleAuthConfig)
		r.Get("/session", deps.AuthHandler.HandleSession)
		r.Post("/logout", deps.AuthHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthHandler.RequireSession)
			r.Get("/customers", deps.CampaignHandler.HandleCustomers)
			r.Post("/campaigns/rules", deps.CampaignHandler.HandleRules)
			r.Post("/campaigns/message", deps.CampaignHandler.HandleMessage)
			r.Post("/campaigns/send", deps.CampaignHandler.HandleSend)
			r.Get("/admin/warnings", deps.PortalHandler.HandleWarnings)
		})
	})
}

// registerHealthRoutes registers health check endpoints (no auth).
func registerHealthRoutes(r chi.Router, deps *RouterDeps) {
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Get("/ready", deps.HealthHandler.HandleReady)
}

// registerMetricsRoutes registers metrics endpoint if enabled.
func registerMetricsRoutes(r chi.Router, deps *RouterDeps) {
	if deps.Config.Observability.Metrics.Enabled {
		r.Handle(deps.Config.Observability.Metrics.Path, deps.Metrics.Handler())
	}
}

// registerAdminRoutes registers admin endpoints.
func registerAdminRoutes(r chi.Router, deps *RouterDeps) {
	cfg := deps.Config

	r.Route("/admin", func(r chi.Router) {
		r.Get("/schema", handleSchema)

		if cfg.DevMode.Enabled {
			r.Handle("/log/level", logger.LevelHandler())
			r.Get("/config", makeConfigHandler(cfg))
			r.Get("/info", makeInfoHandler(cfg))
		}
	})
}

// handleSchema returns JSON schema for config.
func handleSchema(w http.ResponseWriter, _ *http.Request) {
	gen := schema.NewGenerator()
	data, err := gen.Generate()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// makeConfigHandler creates a handler that returns sanitized config.
func makeConfigHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sanitized := struct {
			DevMode            bool   `json:"dev_mode"`
			HTTPPort           int    `json:"http_port"`
			DevHost            string `json:"dev_host"`
			RecoveryStore      string `json:"recovery_store"`
			RecoveryTTL        string `json:"recovery_ttl"`
			RecoveryEncrypted  bool   `json:"recovery_encrypted"`
			IdentityConfigured bool   `json:"identity_configured"`
			CustomersSource    string `json:"customers_source"`
			LLMProvider        string `json:"llm_provider"`
			LLMModel           string `json:"llm_model"`
			WebhookConfigured  bool   `json:"webhook_configured"`
		}{
			DevMode:            cfg.DevMode.Enabled,
			HTTPPort:           cfg.Server.HTTPPort,
			DevHost:            cfg.Redirect.DevHost,
			RecoveryStore:      cfg.Recovery.Store,
			RecoveryTTL:        cfg.Recovery.TTL.String(),
			RecoveryEncrypted:  cfg.Recovery.EncryptionKey != "",
			IdentityConfigured: cfg.Identity.Configured(),
			CustomersSource:    cfg.Customers.Source,
			LLMProvider:        cfg.LLM.Provider,
			LLMModel:           cfg.LLM.Model,
			WebhookConfigured:  cfg.Webhook.URL != "",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sanitized)
	}
}

// makeInfoHandler creates a handler that returns app info.
func makeInfoHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		info := map[string]any{
			"version":    Version,
			"build_time": BuildTime,
			"dev_mode":   cfg.DevMode.Enabled,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	}
}
