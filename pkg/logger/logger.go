// Package logger wraps zap with a process-wide logger, a runtime-adjustable
// level and request-scoped loggers carried in the context.
package logger

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	loggerKey        contextKey = "logger"
)

var (
	mu          sync.RWMutex
	global      *zap.Logger
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config represents logger configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string
	// Development switches to colored console output.
	Development bool
	// OutputPaths are zap sink URLs; stdout when empty.
	OutputPaths []string
	// InitialFields are added to every entry.
	InitialFields map[string]interface{}
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		OutputPaths: []string{"stdout"},
	}
}

// Init builds the global logger from cfg and installs it as zap's global.
// Calling Init again replaces the previous logger.
func Init(cfg Config) error {
	if err := atomicLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		atomicLevel.SetLevel(zapcore.InfoLevel)
	}

	encoding := "json"
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Development {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	l, err := zap.Config{
		Level:            atomicLevel,
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    cfg.InitialFields,
	}.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	SetGlobal(l)
	return nil
}

// SetGlobal installs l as the global logger.
func SetGlobal(l *zap.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
}

// L returns the global logger, or a no-op logger before Init.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Named returns a named child of the global logger.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// SetLevel changes the log level at runtime.
func SetLevel(level string) error {
	return atomicLevel.UnmarshalText([]byte(level))
}

// GetLevel returns the current log level.
func GetLevel() string {
	return atomicLevel.Level().String()
}

// LevelHandler serves GET/PUT of the current level as JSON.
func LevelHandler() http.Handler {
	return atomicLevel
}

// Sync flushes buffered entries.
func Sync() error {
	return L().Sync()
}

// FromContext returns the request logger stored in ctx, falling back to the
// global logger tagged with the correlation id if one is present.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return L().With(zap.String("correlation_id", id))
	}
	return L()
}

// ToContext stores l in ctx.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithCorrelationID tags ctx and its logger with id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	base := FromContext(ctx)
	ctx = context.WithValue(ctx, correlationIDKey, id)
	return ToContext(ctx, base.With(zap.String("correlation_id", id)))
}

// GetCorrelationID returns the correlation id stored in ctx.
func GetCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
