package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New builds the process logger. local and dev log at debug; local writes
// human-readable text, every other env writes JSON for the collector.
func New(appEnv string) *slog.Logger {
	return newLogger(os.Stdout, appEnv)
}

func newLogger(w io.Writer, appEnv string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	switch appEnv {
	case "local":
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(w, opts))
	case "dev":
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", "crm-telephony", "env", appEnv)
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// Detach returns a context that survives the caller's cancellation but keeps
// its values (request logger, request id). Background work started after a
// response has been written runs under it.
func Detach(ctx context.Context, attrs ...any) context.Context {
	out := context.WithoutCancel(ctx)
	if len(attrs) > 0 {
		out = With(out, From(ctx).With(attrs...))
	}
	return out
}
