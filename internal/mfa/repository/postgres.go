package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"asset-registry/backend/internal/db"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/mfa/domain"
)

type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns an OTP challenge repository backed by pool.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Replace implements Repository.
func (r *PostgresRepository) Replace(ctx context.Context, c *domain.Challenge, cooldown time.Duration) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		const lockQ = `SELECT id FROM identities WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`
		var locked string
		if err := tx.QueryRow(ctx, lockQ, c.IdentityID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrIdentityNotFound
			}
			return fmt.Errorf("lock identity: %w", err)
		}

		if cooldown > 0 {
			const lastQ = `
SELECT created_at FROM otp_challenges
WHERE identity_id = $1 AND dispatch_failed = FALSE
ORDER BY created_at DESC
LIMIT 1`
			var last time.Time
			err := tx.QueryRow(ctx, lastQ, c.IdentityID).Scan(&last)
			switch {
			case err == nil:
				if wait := last.Add(cooldown).Sub(c.CreatedAt); wait > 0 {
					return &CooldownError{RetryAfter: wait}
				}
			case errors.Is(err, pgx.ErrNoRows):
			default:
				return fmt.Errorf("last challenge: %w", err)
			}
		}

		const closeQ = `UPDATE otp_challenges SET used = TRUE WHERE identity_id = $1 AND used = FALSE`
		if _, err := tx.Exec(ctx, closeQ, c.IdentityID); err != nil {
			return fmt.Errorf("close prior challenges: %w", err)
		}

		const insertQ = `
INSERT INTO otp_challenges (id, identity_id, code_hash, channel, expires_at, attempts, used, dispatch_failed, created_at)
VALUES ($1, $2, $3, $4, $5, 0, FALSE, FALSE, $6)`
		if _, err := tx.Exec(ctx, insertQ, c.ID, c.IdentityID, c.CodeHash, string(c.Channel), c.ExpiresAt, c.CreatedAt); err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
}

// GetLatest implements Repository.
func (r *PostgresRepository) GetLatest(ctx context.Context, identityID string) (*domain.Challenge, error) {
	const q = `
SELECT id, identity_id, code_hash, channel, expires_at, attempts, used, dispatch_failed, created_at
FROM otp_challenges
WHERE identity_id = $1
ORDER BY created_at DESC
LIMIT 1`
	var (
		c       domain.Challenge
		channel string
	)
	err := r.pool.QueryRow(ctx, q, identityID).Scan(
		&c.ID, &c.IdentityID, &c.CodeHash, &channel, &c.ExpiresAt, &c.Attempts, &c.Used, &c.DispatchFailed, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Channel = identitydomain.Channel(channel)
	return &c, nil
}

// RecordFailure implements Repository.
func (r *PostgresRepository) RecordFailure(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	const q = `
UPDATE otp_challenges
SET attempts = attempts + 1, used = (attempts + 1 >= $2)
WHERE id = $1 AND used = FALSE
RETURNING attempts, used`
	var (
		attempts int
		closed   bool
	)
	if err := r.pool.QueryRow(ctx, q, id, maxAttempts).Scan(&attempts, &closed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, true, ErrChallengeClosed
		}
		return 0, false, err
	}
	return attempts, closed, nil
}

// Consume implements Repository.
func (r *PostgresRepository) Consume(ctx context.Context, id string, now time.Time) (bool, error) {
	const q = `UPDATE otp_challenges SET used = TRUE WHERE id = $1 AND used = FALSE AND expires_at > $2`
	tag, err := r.pool.Exec(ctx, q, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Close implements Repository.
func (r *PostgresRepository) Close(ctx context.Context, id string) error {
	const q = `UPDATE otp_challenges SET used = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkDispatchFailed implements Repository.
func (r *PostgresRepository) MarkDispatchFailed(ctx context.Context, id string) error {
	const q = `UPDATE otp_challenges SET used = TRUE, dispatch_failed = TRUE WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
