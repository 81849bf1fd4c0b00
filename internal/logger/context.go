package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request logger, or the process-wide zap.L() when
// the call did not come through the HTTP stack (CLI, loader, tests). zap.L()
// is a no-op until zap.ReplaceGlobals is called.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.L()
}

// WithKind tags every later log line of the call with the item kind.
func WithKind(ctx context.Context, kind string) context.Context {
	return ContextWithLogger(ctx, FromContext(ctx).With(zap.String("kind", kind)))
}
