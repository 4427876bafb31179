package repository

import (
	"context"

	"asset-registry/backend/internal/audit/domain"
)

// Filter narrows ListEvents. Empty fields match everything.
type Filter struct {
	Event      string
	IdentityID string
}

// Repository defines append-only persistence for audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.AuditEvent) error
	// ListEvents returns events newest first.
	ListEvents(ctx context.Context, f Filter, limit, offset int32) ([]*domain.AuditEvent, error)
}
