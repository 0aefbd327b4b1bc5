package grpcauth

import (
	"context"

	"authcore/token"
)

type claimsKey struct{}

// WithClaims returns a child context carrying verified claims. The
// interceptor calls this after a successful check; tests and non-gRPC
// callers can use it to stand in for an authenticated request.
func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the verified claims attached to ctx, if any.
func ClaimsFrom(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return c, ok
}

// UserID returns the authenticated subject from ctx and true if set;
// otherwise "", false.
func UserID(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return "", false
	}
	return c.UserID(), true
}

// SessionID returns the authenticated session id from ctx and true if set;
// otherwise "", false.
func SessionID(ctx context.Context) (string, bool) {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return "", false
	}
	return c.SessionID, true
}
