// Package rbac holds handler-level role checks on the authenticated principal.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/diag"
	identitydomain "asset-registry/backend/internal/identity/domain"
	sessiondomain "asset-registry/backend/internal/session/domain"
	"asset-registry/backend/internal/server/interceptors"
)

// RequireAuthenticated returns the caller's principal, or an Unauthenticated gRPC error for an anonymous call.
func RequireAuthenticated(ctx context.Context) (*sessiondomain.Principal, error) {
	p := interceptors.PrincipalFromContext(ctx)
	if p == nil || p.IdentityID == "" {
		return nil, rpc.Error(codes.Unauthenticated, diag.Unauthenticated, "authentication required")
	}
	return p, nil
}

// RequireRole ensures the caller is authenticated and holds one of roles.
// Returns the principal on success; returns a gRPC error (Unauthenticated or PermissionDenied) on failure.
func RequireRole(ctx context.Context, roles ...identitydomain.Role) (*sessiondomain.Principal, error) {
	p, err := RequireAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if p.Role == r {
			return p, nil
		}
	}
	return nil, rpc.Error(codes.PermissionDenied, diag.PermissionDenied, "role not permitted")
}
