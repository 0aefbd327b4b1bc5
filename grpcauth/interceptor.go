// Package grpcauth gates gRPC unary handlers on access-token verification.
// The interceptor pulls the Bearer token from incoming metadata, verifies it,
// and attaches the resulting claims to the handler context. Handlers read the
// caller's identity back with ClaimsFrom and enforce authorization with
// RequirePermission and RequireRole.
package grpcauth

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"authcore/internal/logctx"
	"authcore/token"
)

const bearerPrefix = "bearer "

// errUnauthenticated is the only authentication failure this package returns
// to clients. Missing, malformed, expired, revoked, and wrong-type tokens all
// map to the same status so the interceptor never leaks token state.
var errUnauthenticated = status.Error(codes.Unauthenticated, "authentication required")

// Verifier checks a presented token string against an expected type and
// returns its verified claims. Both Manager in the authcore root package and
// token.Verifier satisfy it.
type Verifier interface {
	Verify(ctx context.Context, tokenString string, want token.Type) (*token.Claims, error)
}

// UnaryServerInterceptor returns a unary server interceptor that requires a
// valid Bearer access token for every method not listed in publicMethods.
// publicMethods holds full method names (e.g. "/auth.v1.Auth/Login") that may
// be called anonymously; when such a call does carry a valid token the claims
// are attached anyway, so public handlers can personalize their response.
//
// When the inbound context already carries a logctx logger, a successful check
// re-carries it with user_id and session_id attached, and every log line
// downstream of the interceptor identifies the caller.
func UnaryServerInterceptor(v Verifier, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		raw := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if raw == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, errUnauthenticated
		}

		claims, err := v.Verify(ctx, raw, token.TypeAccess)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, errUnauthenticated
		}

		ctx = WithClaims(ctx, claims)
		if base, ok := logctx.Carried(ctx); ok {
			ctx = logctx.Into(ctx, base.With(
				slog.String("user_id", claims.UserID()),
				slog.String("session_id", claims.SessionID),
			))
		}
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing
// or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
