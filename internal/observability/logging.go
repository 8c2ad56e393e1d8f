// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Stdout, "text", slog.LevelInfo)
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// RunID is the context key carrying the id of the current seeding run.
const RunID LogContextKey = "run_id"

// ctxHandler adds the run id and the active trace id to every record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := ExtractRunID(ctx); id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a context-aware logger writing text or JSON records to w.
func NewLogger(w io.Writer, format string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return &Logger{Logger: slog.New(&ctxHandler{handler})}
}

// SetupLogging replaces GlobalLogger according to the configured format and level.
func SetupLogging(format, level string) {
	GlobalLogger = NewLogger(os.Stdout, format, ParseLevel(level))
	slog.SetDefault(GlobalLogger.Logger)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GenerateRunID creates a new unique run id.
func GenerateRunID() string {
	return uuid.NewString()
}

// WithRunID returns a new context with the given run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunID, id)
}

// ExtractRunID retrieves the run id from the context.
func ExtractRunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunID).(string); ok {
		return id
	}
	return ""
}

// statusError is implemented by API errors that carry an HTTP status and body.
type statusError interface {
	error
	StatusCode() int
	ResponseBody() string
}

// SeedLogger provides structured logging for one seeded resource.
type SeedLogger struct {
	resource string
	logger   *Logger
}

// NewSeedLogger creates a SeedLogger for the given resource. A nil logger
// falls back to GlobalLogger at call time.
func NewSeedLogger(resource string, logger *Logger) *SeedLogger {
	return &SeedLogger{resource: resource, logger: logger}
}

func (l *SeedLogger) base() *Logger {
	if l.logger != nil {
		return l.logger
	}
	return GlobalLogger
}

// LogStage logs the start of a seeding stage.
func (l *SeedLogger) LogStage(ctx context.Context, msg string, fields map[string]any) {
	attrs := []any{slog.String("resource", l.resource)}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.base().InfoContext(ctx, msg, attrs...)
}

// LogCreate logs a confirmed creation.
func (l *SeedLogger) LogCreate(ctx context.Context, fields map[string]any) {
	attrs := []any{
		slog.String("resource", l.resource),
		slog.String("operation", "create"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.base().InfoContext(ctx, "resource created", attrs...)
}

// LogCreateDebug logs a confirmed creation at debug level, for high-volume resources.
func (l *SeedLogger) LogCreateDebug(ctx context.Context, fields map[string]any) {
	attrs := []any{
		slog.String("resource", l.resource),
		slog.String("operation", "create"),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.base().DebugContext(ctx, "resource created", attrs...)
}

// LogFailure logs a failed creation with the HTTP status and body when available.
func (l *SeedLogger) LogFailure(ctx context.Context, err error, fields map[string]any) {
	attrs := []any{
		slog.String("resource", l.resource),
		slog.String("operation", "create"),
		slog.String("error", err.Error()),
	}
	var se statusError
	if errors.As(err, &se) {
		attrs = append(attrs, slog.Int("status", se.StatusCode()), slog.String("body", se.ResponseBody()))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.base().ErrorContext(ctx, "resource creation failed", attrs...)
}

// LogProgress logs a running count of confirmed creations.
func (l *SeedLogger) LogProgress(ctx context.Context, created, target int) {
	l.base().InfoContext(ctx, "seeding progress",
		slog.String("resource", l.resource),
		slog.Int("created", created),
		slog.Int("target", target),
	)
}
