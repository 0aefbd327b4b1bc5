package grpcauth

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequirePermission returns nil when the context carries verified claims
// whose permission snapshot contains perm. It returns Unauthenticated when no
// claims are attached and PermissionDenied when the permission is missing.
// Handlers call it at the top of any method that needs more than a valid
// token:
//
//	if err := grpcauth.RequirePermission(ctx, "users.delete"); err != nil {
//		return nil, err
//	}
func RequirePermission(ctx context.Context, perm string) error {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return errUnauthenticated
	}
	if !c.HasPermission(perm) {
		return status.Errorf(codes.PermissionDenied, "permission %q required", perm)
	}
	return nil
}

// RequireRole is RequirePermission for the role snapshot.
func RequireRole(ctx context.Context, role string) error {
	c, ok := ClaimsFrom(ctx)
	if !ok {
		return errUnauthenticated
	}
	if !c.HasRole(role) {
		return status.Errorf(codes.PermissionDenied, "role %q required", role)
	}
	return nil
}
