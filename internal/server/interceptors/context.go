package interceptors

import (
	"context"

	sessiondomain "asset-registry/backend/internal/session/domain"
)

type contextKey struct{ name string }

var (
	principalKey = contextKey{"principal"}
	tokenKey     = contextKey{"token"}
)

// WithPrincipal returns a context carrying the authenticated caller and the bearer token it presented.
func WithPrincipal(ctx context.Context, p *sessiondomain.Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

// PrincipalFromContext returns the authenticated caller, or nil for an anonymous request.
func PrincipalFromContext(ctx context.Context) *sessiondomain.Principal {
	p, _ := ctx.Value(principalKey).(*sessiondomain.Principal)
	return p
}

// GetIdentityID returns the caller's identity id and true if the request is authenticated.
func GetIdentityID(ctx context.Context) (string, bool) {
	if p := PrincipalFromContext(ctx); p != nil && p.IdentityID != "" {
		return p.IdentityID, true
	}
	return "", false
}

// GetToken returns the validated bearer token, or "" when the request is anonymous.
func GetToken(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
