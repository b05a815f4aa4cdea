// Package logging builds the structured loggers used by the client and the
// edge, and carries per-request and per-stream attributes on the context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

type ctxKey string

// Context attributes copied onto every record logged with that context.
const (
	RequestIDKey ctxKey = "request_id"
	UserIDKey    ctxKey = "user_id"
	ScopeKey     ctxKey = "scope"
)

var contextKeys = []ctxKey{RequestIDKey, UserIDKey, ScopeKey}

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, text
	Output      io.Writer
	AddSource   bool
	ServiceName string
	Environment string
}

// NewLogger returns a logger tagged with the service and environment.
// Output defaults to stderr so command output on stdout stays clean.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: formatTime,
	}

	var base slog.Handler
	switch cfg.Format {
	case "text":
		base = slog.NewTextHandler(out, opts)
	default:
		base = slog.NewJSONHandler(out, opts)
	}
	base = base.WithAttrs([]slog.Attr{
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
	})

	return slog.New(contextHandler{Handler: base})
}

func formatTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(a.Key, a.Value.Time().Format(time.RFC3339Nano))
	}
	return a
}

// contextHandler adds context attributes to records logged with the
// *Context methods.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(attrsFrom(ctx)...)
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

func attrsFrom(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID tags work done on behalf of the signed-in user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithScope tags work tied to one live channel, e.g. "ticket:42".
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, ScopeKey, scope)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LoggerFromContext binds the context attributes to logger, for code that
// logs from goroutines outliving the context or without the *Context
// methods. Do not combine the result with the *Context methods on the same
// context; the attributes would be written twice.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := attrsFrom(ctx)
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return logger.With(args...)
}

// LogPanic logs a recovered panic value with the current goroutine's stack.
// It must be called from the deferred recover so the stack still shows the
// panicking frame.
func LogPanic(logger *slog.Logger, value any, attrs ...any) {
	attrs = append(attrs,
		"panic", value,
		"stack_trace", string(debug.Stack()),
	)
	logger.Error("panic recovered", attrs...)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

// discardHandler mirrors slog.DiscardHandler (Go 1.24+) for older toolchains.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// ParseLevel maps a configured level name to a slog level. Unknown names
// log at info.
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
