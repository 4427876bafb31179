package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"asset-registry/backend/internal/db"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/session/domain"
)

type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns a session repository backed by pool.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ReplaceForIdentity implements Repository.
func (r *PostgresRepository) ReplaceForIdentity(ctx context.Context, s *domain.Session) (int64, error) {
	var revoked int64
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		const lockQ = `SELECT id FROM identities WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
		var locked string
		if err := tx.QueryRow(ctx, lockQ, s.IdentityID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrIdentityNotFound
			}
			return fmt.Errorf("lock identity: %w", err)
		}

		const revokeQ = `
UPDATE sessions SET revoked = TRUE, revoked_at = $2
WHERE identity_id = $1 AND revoked = FALSE`
		tag, err := tx.Exec(ctx, revokeQ, s.IdentityID, s.CreatedAt)
		if err != nil {
			return fmt.Errorf("revoke prior sessions: %w", err)
		}
		revoked = tag.RowsAffected()

		const insertQ = `
INSERT INTO sessions (id, identity_id, role, token_hash, expires_at, revoked, client_ip, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NULLIF($6, ''), NULLIF($7, ''), $8)`
		if _, err := tx.Exec(ctx, insertQ, s.ID, s.IdentityID, string(s.Role), s.TokenHash, s.ExpiresAt,
			s.ClientIP, s.UserAgent, s.CreatedAt); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return revoked, nil
}

// GetByTokenHash implements Repository.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	const q = `
SELECT id, identity_id, role, token_hash, expires_at, revoked, COALESCE(client_ip, ''), COALESCE(user_agent, ''), created_at
FROM sessions
WHERE token_hash = $1`
	var (
		s    domain.Session
		role string
	)
	err := r.pool.QueryRow(ctx, q, tokenHash).Scan(
		&s.ID, &s.IdentityID, &role, &s.TokenHash, &s.ExpiresAt, &s.Revoked, &s.ClientIP, &s.UserAgent, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Role = identitydomain.Role(role)
	return &s, nil
}

// Extend implements Repository.
func (r *PostgresRepository) Extend(ctx context.Context, id string, expiresAt time.Time) (bool, error) {
	const q = `UPDATE sessions SET expires_at = $2 WHERE id = $1 AND revoked = FALSE AND expires_at < $2`
	tag, err := r.pool.Exec(ctx, q, id, expiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Revoke implements Repository.
func (r *PostgresRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `UPDATE sessions SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
