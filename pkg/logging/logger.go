package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel is a level name as accepted by slog ("debug", "INFO", "warn+2" ...)
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "unknown"),
		Output:      os.Stdout,
	}
}

// Logger wraps slog.Logger with fulfillment-specific helpers
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger stamped with service, environment and version
func New(config *Config) *Logger {
	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		AddSource:   config.AddSource,
		ReplaceAttr: utcTimestamps,
	}

	base := slog.New(slog.NewJSONHandler(output, opts)).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)
	return &Logger{Logger: base}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func (lv LogLevel) slogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lv)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func utcTimestamps(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext adds the request, correlation, trace, user and tenant ids carried by ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return l.with(attrs...)
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.with(flatten(nil, fields)...)
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// WithComponent adds a component name to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// Event logs a fulfillment lifecycle event; data is nested under "data"
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	l.WithContext(ctx).Info("Fulfillment event",
		"eventType", eventType,
		slog.Group("data", flatten(nil, data)...),
	)
}

// Audit records who changed what
func (l *Logger) Audit(ctx context.Context, action, resource, resourceID, userID string, details map[string]any) {
	attrs := flatten([]any{
		"auditAction", action,
		"resource", resource,
		"resourceId", resourceID,
		"userId", userID,
	}, details)
	l.WithContext(ctx).Info("Audit event", attrs...)
}

// SagaStep logs the outcome of one reservation saga step
func (l *Logger) SagaStep(ctx context.Context, topology, step string, duration time.Duration, err error) {
	attrs := []any{"topology", topology, "step", step}
	l.outcome(ctx, "Saga step", slog.LevelWarn, duration, err, attrs...)
}

// HTTPRequest logs a served request at a level derived from its status
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, clientIP string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	l.WithContext(ctx).Log(ctx, level, "HTTP request",
		"method", method,
		"path", path,
		"status", status,
		"durationMs", duration.Milliseconds(),
		"clientIP", clientIP,
	)
}

// DatabaseQuery logs a repository operation against one collection
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, err error) {
	l.outcome(ctx, "Database query", slog.LevelError, duration, err, "collection", collection, "operation", operation)
}

// KafkaPublish logs an outbox relay to Kafka
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelError
	}
	l.WithContext(ctx).Log(ctx, level, "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// outcome logs at debug on success and at failLevel otherwise
func (l *Logger) outcome(ctx context.Context, msg string, failLevel slog.Level, duration time.Duration, err error, attrs ...any) {
	level := slog.LevelDebug
	attrs = append(attrs, "durationMs", duration.Milliseconds(), "success", err == nil)
	if err != nil {
		level = failLevel
		attrs = append(attrs, "error", err.Error())
	}
	l.WithContext(ctx).Log(ctx, level, msg, attrs...)
}

// Panic logs a recovered panic with the current goroutine's stack
func (l *Logger) Panic(ctx context.Context, recovered any) {
	l.WithContext(ctx).Error("Panic recovered",
		"panic", recovered,
		"stack", string(debug.Stack()),
	)
}

// SetDefault sets this logger as the default slog logger
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

type contextKey string

const (
	RequestIDKey     contextKey = "requestId"
	CorrelationIDKey contextKey = "correlationId"
	TraceIDKey       contextKey = "traceId"
	UserIDKey        contextKey = "userId"
	TenantIDKey      contextKey = "tenantId"
)

var contextKeys = []contextKey{RequestIDKey, CorrelationIDKey, TraceIDKey, UserIDKey, TenantIDKey}

func contextAttrs(ctx context.Context) []any {
	var attrs []any
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			attrs = append(attrs, string(key), v)
		}
	}

	// outbox and saga goroutines carry a span but no middleware-set trace id
	if ctx.Value(TraceIDKey) == nil {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			attrs = append(attrs, string(TraceIDKey), sc.TraceID().String())
		}
	}
	return attrs
}

func flatten(attrs []any, fields map[string]any) []any {
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// ContextWithRequestID adds request ID to context
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithCorrelationID adds correlation ID to context
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// ContextWithTraceID adds trace ID to context
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// ContextWithUserID adds user ID to context
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// ContextWithTenantID adds tenant ID to context for log correlation
func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// UserIDFromContext returns the acting user, or "system" when none is set
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok && v != "" {
		return v
	}
	return "system"
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
