// Package log configures slog handlers and carries request-scoped log
// context (request id, component logger) through context.Context.
package log

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Logger is a slog.Logger tagged with a component name.
type Logger struct {
	*slog.Logger
	component string
}

// Config selects the handler for New.
type Config struct {
	// Format is "tint" (default), "text" or "json".
	Format    string
	Level     slog.Level
	Component string
	Output    io.Writer
}

// ParseLevel maps LOG_LEVEL values to slog levels. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewHandler builds the configured handler wrapped in a ContextHandler.
func NewHandler(cfg Config) slog.Handler {
	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(cfg.Output, &slog.HandlerOptions{Level: cfg.Level})
	case "text":
		h = slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{Level: cfg.Level})
	default:
		h = tint.NewHandler(cfg.Output, &tint.Options{
			Level:      cfg.Level,
			TimeFormat: time.Kitchen,
		})
	}
	return ContextHandler{Handler: h}
}

func New(cfg Config) *Logger {
	if cfg.Component == "" {
		cfg.Component = ComponentApp
	}
	return &Logger{
		Logger:    slog.New(NewHandler(cfg)).With(FieldComponent, cfg.Component),
		component: cfg.Component,
	}
}

// Wrap tags an existing slog.Logger with a component.
func Wrap(l *slog.Logger, component string) *Logger {
	return &Logger{Logger: l.With(FieldComponent, component), component: component}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), component: l.component}
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(FieldComponent, component), component: component}
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// ContextHandler adds the request id stored in the context to every record.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String(FieldRequestID, id))
	}
	if uid := UserID(ctx); uid > 0 {
		r.AddAttrs(slog.Int64(FieldUserID, uid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}
