package repository

import (
	"context"
	"errors"
	"time"

	"asset-registry/backend/internal/session/domain"
)

// ErrIdentityNotFound is returned by ReplaceForIdentity when the identity row is missing or soft-deleted.
var ErrIdentityNotFound = errors.New("identity not found")

// Repository defines persistence for sessions.
type Repository interface {
	// ReplaceForIdentity revokes every live session of s.IdentityID and inserts s, atomically under the
	// identity row lock. Returns the number of sessions revoked.
	ReplaceForIdentity(ctx context.Context, s *domain.Session) (revoked int64, err error)
	// GetByTokenHash returns the session with the given token digest, or nil if not found.
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	// Extend moves expires_at forward to expiresAt for a non-revoked session. It never shortens a session:
	// returns false when the session is revoked or already expires at or after expiresAt.
	Extend(ctx context.Context, id string, expiresAt time.Time) (bool, error)
	// Revoke marks a non-revoked session revoked at at. Returns false when it was already revoked.
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
}
