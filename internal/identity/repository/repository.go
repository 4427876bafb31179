package repository

import (
	"context"

	"asset-registry/backend/internal/identity/domain"
)

// Repository defines read access to registered identities. Soft-deleted identities are never returned.
type Repository interface {
	// GetByNameAndIDNumber returns the identity matching both fields exactly, or nil if none.
	GetByNameAndIDNumber(ctx context.Context, lastName, idNumber string) (*domain.Identity, error)
	// GetByID returns the identity for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// GetPoliceStation returns the station assigned to identityID, or "" if none.
	GetPoliceStation(ctx context.Context, identityID string) (string, error)
}
