// Package logctx carries a *slog.Logger through context so request-scoped
// attributes (user id, session id) follow the call chain.
package logctx

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into returns a child context carrying l.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// Carried returns the logger stored in ctx, when one was set.
func Carried(ctx context.Context) (*slog.Logger, bool) {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l, true
		}
	}
	return nil, false
}

// From returns the logger carried by ctx, or slog.Default() when none is set.
func From(ctx context.Context) *slog.Logger {
	if l, ok := Carried(ctx); ok {
		return l
	}
	return slog.Default()
}
