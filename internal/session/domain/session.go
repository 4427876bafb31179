package domain

import (
	"time"

	identitydomain "asset-registry/backend/internal/identity/domain"
)

// Session is a login session. Only the keyed digest of its bearer token is stored.
type Session struct {
	ID         string
	IdentityID string
	Role       identitydomain.Role
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	ClientIP   string
	UserAgent  string
	CreatedAt  time.Time
}

// Live reports whether the session is neither revoked nor expired at now.
func (s *Session) Live(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}

// Grant is returned once by a successful login. Token is the raw bearer token and is never stored.
type Grant struct {
	Token      string
	SessionID  string
	IdentityID string
	Role       identitydomain.Role
	ExpiresAt  time.Time
}

// Principal is the authenticated caller resolved from a valid session.
type Principal struct {
	SessionID  string
	IdentityID string
	Role       identitydomain.Role
	ExpiresAt  time.Time
}

// RevokeResult is the outcome of revoking a session by token.
type RevokeResult string

const (
	Revoked        RevokeResult = "REVOKED"
	AlreadyRevoked RevokeResult = "ALREADY_REVOKED"
	Expired        RevokeResult = "EXPIRED"
	NotFound       RevokeResult = "NOT_FOUND"
)
