package repository

import (
	"context"

	"asset-registry/backend/internal/audit/domain"
	"asset-registry/backend/internal/db"
)

type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns an audit event repository backed by pool.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create persists the event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditEvent) error {
	const q = `
INSERT INTO audit_events (id, event, identity_id, channel, success, diagnostic_code, ip, user_agent, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, q, e.ID, e.Event, e.IdentityID, e.Channel, e.Success, e.DiagnosticCode, e.IP, e.UserAgent, e.CreatedAt)
	return err
}

// ListEvents returns events matching f, newest first, paginated by limit and offset.
func (r *PostgresRepository) ListEvents(ctx context.Context, f Filter, limit, offset int32) ([]*domain.AuditEvent, error) {
	const q = `
SELECT id, event, identity_id, COALESCE(channel, ''), success, diagnostic_code, ip, user_agent, created_at
FROM audit_events
WHERE ($1 = '' OR event = $1) AND ($2 = '' OR identity_id = $2)
ORDER BY created_at DESC, id
LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, f.Event, f.IdentityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		if err := rows.Scan(&e.ID, &e.Event, &e.IdentityID, &e.Channel, &e.Success, &e.DiagnosticCode,
			&e.IP, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
