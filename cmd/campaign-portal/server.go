package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/handler"
	"github.com/dzerik/campaign-portal/internal/service/bootstrap"
	"github.com/dzerik/campaign-portal/internal/service/campaign"
	"github.com/dzerik/campaign-portal/internal/service/crypto"
	"github.com/dzerik/campaign-portal/internal/service/customer"
	"github.com/dzerik/campaign-portal/internal/service/identity"
	"github.com/dzerik/campaign-portal/internal/service/llm"
	"github.com/dzerik/campaign-portal/internal/service/metrics"
	"github.com/dzerik/campaign-portal/internal/service/recovery"
	"github.com/dzerik/campaign-portal/internal/service/redirect"
	"github.com/dzerik/campaign-portal/internal/service/security"
	"github.com/dzerik/campaign-portal/internal/service/webhook"
	"github.com/dzerik/campaign-portal/internal/ui"
	"github.com/dzerik/campaign-portal/pkg/logger"
	"github.com/dzerik/campaign-portal/pkg/resilience/circuitbreaker"
	"github.com/dzerik/campaign-portal/pkg/tracing"
)

// NewServer creates a new HTTP server with chi router and all handlers.
func NewServer(cfg *config.Config, securityWarnings []security.Warning) (*http.Server, *RouterDeps, error) {
	deps, err := createDependencies(context.Background(), cfg, securityWarnings)
	if err != nil {
		return nil, nil, err
	}

	router := SetupRouter(deps)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}, deps, nil
}

// createDependencies initializes all server dependencies.
func createDependencies(ctx context.Context, cfg *config.Config, securityWarnings []security.Warning) (*RouterDeps, error) {
	templates, err := ui.LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	m := metrics.New()
	tp := initTracing(ctx, cfg)
	breakers := circuitbreaker.NewManager(cfg.Resilience.CircuitBreaker)

	var redisClient redis.UniversalClient
	if cfg.Recovery.Store == "redis" {
		redisClient, err = newRedisClient(ctx, cfg.Recovery.Redis)
		if err != nil {
			return nil, err
		}
	}

	store, err := createRecoveryStore(cfg, redisClient, m)
	if err != nil {
		return nil, err
	}
	logger.L().Info("recovery store created",
		zap.String("backend", store.Backend().Name()),
		zap.Duration("ttl", cfg.Recovery.TTL),
		zap.Bool("encrypted", cfg.Recovery.EncryptionKey != ""),
	)

	idm, err := identity.NewManager(&cfg.Identity, &cfg.DevMode,
		identity.WithHTTPClient(tracing.Client(nil)),
		identity.WithBreakers(breakers),
		identity.WithRecorder(m),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity manager: %w", err)
	}
	logIdentity(idm)

	customers, err := createCustomerSource(ctx, cfg, breakers, m)
	if err != nil {
		return nil, err
	}
	logger.L().Info("customer source created", zap.String("source", customers.Name()))

	completer, err := llm.New(ctx, cfg.LLM, breakers, m)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.L().Warn("language model not configured, rule and message generation are disabled")
		completer = nil
	case err != nil:
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	default:
		logger.L().Info("language model client created",
			zap.String("provider", completer.Name()),
			zap.String("model", cfg.LLM.Model),
		)
	}

	sender := webhook.NewSender(webhook.Options{
		URL:     cfg.Webhook.URL,
		Timeout: cfg.Webhook.Timeout,
		Headers: cfg.Webhook.Headers,
	}, breakers, m)
	if !sender.Configured() {
		logger.L().Warn("webhook not configured, campaign sending is disabled")
	}

	campaignSvc := campaign.NewService(completer, customers, sender, campaign.Options{
		Concurrency: cfg.Campaign.SendConcurrency,
		Recorder:    m,
	})

	corrector := redirect.NewCorrector(redirect.Options{DevHost: cfg.Redirect.DevHost})
	bootstrapSvc := bootstrap.NewService(corrector, store, m)

	healthHandler := handler.NewHealthHandler(Version, breakers)
	if p, ok := store.Backend().(handler.Pinger); ok {
		healthHandler.AddCheck("recovery_store", p)
	}
	if p, ok := customers.(handler.Pinger); ok {
		healthHandler.AddCheck("customers", p)
	}

	return &RouterDeps{
		Config:           cfg,
		Metrics:          m,
		TracerProvider:   tp,
		RedisClient:      redisClient,
		Identity:         idm,
		RecoveryStore:    store,
		Customers:        customers,
		AuthHandler:      handler.NewAuthHandler(idm),
		BootstrapHandler: handler.NewBootstrapHandler(bootstrapSvc, cfg.Server.MaxBodyBytes),
		CampaignHandler:  handler.NewCampaignHandler(campaignSvc, cfg.Server.MaxBodyBytes),
		PortalHandler: handler.NewPortalHandler("Campaign Portal", templates,
			handler.WithSecurityWarnings(securityWarnings),
			handler.WithPageWarnings(cfg.DevMode.Enabled),
		),
		HealthHandler: healthHandler,
	}, nil
}

// newRedisClient connects to Redis and verifies the connection.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("recovery.redis.addresses must be set for the redis store")
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      cfg.Addresses,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MasterName: cfg.MasterName,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// createRecoveryStore builds the tab-scoped recovery store. A Redis client,
// when given, is shared with the rate limiter.
func createRecoveryStore(cfg *config.Config, client redis.UniversalClient, m *metrics.Metrics) (*recovery.Store, error) {
	var backend recovery.Backend
	if client != nil {
		backend = recovery.NewRedisBackendFromClient(client, cfg.Recovery.Redis.KeyPrefix)
	} else {
		b, err := recovery.NewBackend(recovery.Config{Type: cfg.Recovery.Store, TTL: cfg.Recovery.TTL})
		if err != nil {
			return nil, fmt.Errorf("failed to create recovery store: %w", err)
		}
		backend = b
	}

	var enc *crypto.Encryptor
	if cfg.Recovery.EncryptionKey != "" {
		e, err := crypto.NewEncryptorFromString(cfg.Recovery.EncryptionKey)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("invalid recovery encryption key: %w", err)
		}
		enc = e
	}

	return recovery.NewStore(backend, recovery.Options{
		TTL:       cfg.Recovery.TTL,
		Encryptor: enc,
		Errors:    m,
	}), nil
}

// createCustomerSource creates the customer source based on config.
func createCustomerSource(ctx context.Context, cfg *config.Config, breakers *circuitbreaker.Manager, m *metrics.Metrics) (customer.Source, error) {
	switch cfg.Customers.Source {
	case "sql":
		src, err := customer.NewSQLSource(ctx, customer.SQLOptions{
			DSN:          cfg.Customers.SQL.DSN,
			Table:        cfg.Customers.SQL.Table,
			MaxOpenConns: cfg.Customers.SQL.MaxOpenConns,
			Migrate:      cfg.Customers.SQL.Migrate,
		}, breakers, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create customer source: %w", err)
		}
		return src, nil

	case "http", "":
		return customer.NewHTTPSource(cfg.Customers.HTTP.URL, cfg.Customers.HTTP.Timeout, breakers, m), nil

	default:
		return nil, fmt.Errorf("unknown customer source: %s", cfg.Customers.Source)
	}
}

func logIdentity(idm *identity.Manager) {
	switch {
	case idm.IsDevMode():
		logger.L().Warn("identity: development user is served for every request")
	case idm.Enabled():
		logger.L().Info("identity provider configured",
			zap.String("provider", idm.Provider().Name()),
			zap.Strings("login_providers", idm.Providers()),
		)
	default:
		logger.L().Warn("identity provider not configured, sign-in is unavailable")
	}
}

// initTracing initializes OpenTelemetry tracing. Failures fall back to an
// inert provider.
func initTracing(ctx context.Context, cfg *config.Config) *tracing.Provider {
	tracingCfg := tracing.Config{
		Enabled:        cfg.Observability.Tracing.Enabled,
		ServiceName:    "campaign-portal",
		ServiceVersion: Version,
		Environment:    getEnvironment(cfg),
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		Protocol:       cfg.Observability.Tracing.Protocol,
		Insecure:       cfg.Observability.Tracing.Insecure,
		SamplingRatio:  cfg.Observability.Tracing.SamplingRatio,
		Headers:        cfg.Observability.Tracing.Headers,
	}

	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		logger.L().Error("failed to initialize tracing", zap.Error(err))
		return &tracing.Provider{}
	}

	if tracingCfg.Enabled {
		logger.L().Info("tracing initialized",
			zap.String("endpoint", tracingCfg.Endpoint),
			zap.String("protocol", tracingCfg.Protocol),
		)
	}
	return tp
}

// startHTTPServer starts HTTP server and handles errors.
func startHTTPServer(srv *http.Server, cfg config.ServerConfig) {
	logger.L().Info("starting HTTP server",
		zap.Int("port", cfg.HTTPPort),
		zap.Bool("tls", cfg.TLS.Enabled),
	)

	var err error
	if cfg.TLS.Enabled {
		err = srv.ListenAndServeTLS(cfg.TLS.Cert, cfg.TLS.Key)
	} else {
		err = srv.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L().Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown.
func waitForShutdown(srv *http.Server, deps *RouterDeps, timeout time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.L().Info("shutting down server...")

	deps.HealthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("server shutdown error", zap.Error(err))
	}

	if err := deps.Customers.Close(); err != nil {
		logger.L().Error("customer source close error", zap.Error(err))
	}
	// Closes the shared Redis client as well.
	if err := deps.RecoveryStore.Close(); err != nil {
		logger.L().Error("recovery store close error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := deps.TracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.L().Error("tracing shutdown error", zap.Error(err))
	}

	logger.L().Info("server stopped")
}
