// Package logger provides the process-wide structured logger built on log/slog.
//
// Handlers and services should log through WithCtx so every line carries the
// request_id injected by the request logging middleware:
//
//	log := logger.WithCtx(r.Context())
//	log.Info("listing stored", "listing_id", l.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/shashiranjanraj/krishimitra/config"
)

// L is the base logger. It is replaced (never mutated) by Attach.
var L *slog.Logger

func init() {
	L = slog.New(newBaseHandler(os.Stdout, config.IsProduction()))
	slog.SetDefault(L)
}

// newBaseHandler emits JSON in production and readable text elsewhere.
func newBaseHandler(w io.Writer, production bool) slog.Handler {
	if production {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// Attach fans every subsequent log record out to extra in addition to the
// current handler. Used at boot to add the MongoDB sink.
func Attach(extra slog.Handler) {
	L = slog.New(NewMultiHandler(L.Handler(), extra))
	slog.SetDefault(L)
}

// SetOutput swaps the base logger for one writing to w. Tests use it to
// capture or silence output.
func SetOutput(w io.Writer) {
	L = slog.New(newBaseHandler(w, false))
	slog.SetDefault(L)
}

type ctxKey struct{}

// WithCtx returns the per-request logger stored by InjectLogger, or L.
func WithCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return L
	}
	if log, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return L
}

// InjectLogger stores a request-scoped logger in ctx.
func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
