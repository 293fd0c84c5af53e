package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dzerik/campaign-portal/internal/config"
	"github.com/dzerik/campaign-portal/internal/service/security"
	"github.com/dzerik/campaign-portal/pkg/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application entry point with proper error handling.
func run() error {
	opts := parseFlags()

	// --version, --help, --schema, --generate-key
	if handled := handleInfoCommands(opts); handled {
		return nil
	}

	if err := config.LoadDotEnv(opts.envFiles...); err != nil {
		return err
	}

	if err := initLogger(opts.devMode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.L().Info("starting campaign-portal",
		zap.String("version", Version),
		zap.Bool("dev_mode", opts.devMode),
	)

	cfg, err := loadAndValidateConfig(opts.configPath, opts.devMode)
	if err != nil {
		return err
	}

	if opts.printConfig {
		data, err := config.DumpYAML(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}

	securityWarnings := checkSecurity(cfg)

	return runServer(cfg, securityWarnings)
}

// initLogger initializes the logger with appropriate settings.
func initLogger(devMode bool) error {
	logCfg := logger.DefaultConfig()
	if devMode || os.Getenv("DEV_MODE") == "true" {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	return logger.Init(logCfg)
}

// loadAndValidateConfig loads and validates configuration.
func loadAndValidateConfig(configPath string, devMode bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.L().Error("failed to load configuration",
			zap.Error(err),
			zap.String("path", configPath),
		)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if devMode {
		cfg.DevMode.Enabled = true
	}

	if cfg.Log.Level != "" {
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			logger.L().Warn("invalid log level in config", zap.String("level", cfg.Log.Level), zap.Error(err))
		}
	}

	logger.L().Info("configuration loaded",
		zap.String("path", configPath),
		zap.Bool("dev_mode", cfg.DevMode.Enabled),
		zap.Bool("identity_configured", cfg.Identity.Configured()),
		zap.String("recovery_store", cfg.Recovery.Store),
		zap.String("customers_source", cfg.Customers.Source),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	if err := config.Validate(cfg); err != nil {
		logger.L().Error("configuration validation failed", zap.Error(err))
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// checkSecurity checks for security issues and logs warnings.
func checkSecurity(cfg *config.Config) []security.Warning {
	checker := security.NewChecker(cfg)
	warnings := checker.Check()

	if len(warnings) == 0 {
		logger.L().Info("security check passed - no issues found")
		return warnings
	}

	logger.L().Warn("security issues detected in configuration",
		zap.Int("total_warnings", len(warnings)),
		zap.String("summary", security.FormatSummary(warnings)),
	)
	for _, w := range warnings {
		logFunc := logger.L().Warn
		if w.Severity == security.SeverityCritical {
			logFunc = logger.L().Error
		}
		logFunc("security warning",
			zap.String("code", w.Code),
			zap.String("severity", string(w.Severity)),
			zap.String("title", w.Title),
			zap.String("component", w.Component),
			zap.String("recommendation", w.Recommendation),
		)
	}

	return warnings
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(cfg *config.Config, securityWarnings []security.Warning) error {
	srv, deps, err := NewServer(cfg, securityWarnings)
	if err != nil {
		logger.L().Error("failed to create server", zap.Error(err))
		return fmt.Errorf("failed to create server: %w", err)
	}

	go startHTTPServer(srv, cfg.Server)

	time.AfterFunc(1*time.Second, func() {
		deps.HealthHandler.SetReady(true)
		logger.L().Info("service is ready")
	})

	waitForShutdown(srv, deps, cfg.Server.ShutdownTimeout)

	return nil
}
