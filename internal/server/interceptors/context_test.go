package interceptors

import (
	"context"
	"testing"

	identitydomain "asset-registry/backend/internal/identity/domain"
	sessiondomain "asset-registry/backend/internal/session/domain"
)

func TestWithPrincipal(t *testing.T) {
	p := &sessiondomain.Principal{SessionID: "session-1", IdentityID: "identity-1", Role: identitydomain.RoleAdmin}
	ctx := WithPrincipal(context.Background(), p, "tok")

	if got := PrincipalFromContext(ctx); got != p {
		t.Errorf("PrincipalFromContext = %+v, want %+v", got, p)
	}
	id, ok := GetIdentityID(ctx)
	if !ok || id != "identity-1" {
		t.Errorf("GetIdentityID = %q, %v", id, ok)
	}
	if got := GetToken(ctx); got != "tok" {
		t.Errorf("GetToken = %q, want tok", got)
	}
}

func TestAnonymousContext(t *testing.T) {
	ctx := context.Background()
	if p := PrincipalFromContext(ctx); p != nil {
		t.Errorf("PrincipalFromContext = %+v, want nil", p)
	}
	if _, ok := GetIdentityID(ctx); ok {
		t.Error("GetIdentityID should return false")
	}
	if got := GetToken(ctx); got != "" {
		t.Errorf("GetToken = %q, want empty", got)
	}
}
