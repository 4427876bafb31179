package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"asset-registry/backend/internal/db"
	"asset-registry/backend/internal/identity/domain"
)

const identityColumns = `id, last_name, id_number, COALESCE(phone, ''), COALESCE(email, ''), role,
COALESCE(police_station, ''), created_at`

// PostgresRepository reads identities from Postgres.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository returns an identity repository backed by pool.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByNameAndIDNumber returns the live identity matching lastName and idNumber, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByNameAndIDNumber(ctx context.Context, lastName, idNumber string) (*domain.Identity, error) {
	const q = `SELECT ` + identityColumns + `
FROM identities
WHERE last_name = $1 AND id_number = $2 AND deleted_at IS NULL`
	return scanIdentity(r.pool.QueryRow(ctx, q, lastName, idNumber))
}

// GetByID returns the live identity for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const q = `SELECT ` + identityColumns + `
FROM identities
WHERE id = $1 AND deleted_at IS NULL`
	return scanIdentity(r.pool.QueryRow(ctx, q, id))
}

// GetPoliceStation returns the station assigned to a live identity, or "" when unassigned or missing.
func (r *PostgresRepository) GetPoliceStation(ctx context.Context, identityID string) (string, error) {
	const q = `SELECT COALESCE(police_station, '') FROM identities WHERE id = $1 AND deleted_at IS NULL`
	var station string
	if err := r.pool.QueryRow(ctx, q, identityID).Scan(&station); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return station, nil
}

// Upsert inserts or replaces a development identity. Used by cmd/seed only; the registration
// workflow owns identities in production.
func (r *PostgresRepository) Upsert(ctx context.Context, i *domain.Identity) error {
	const q = `
INSERT INTO identities (id, last_name, id_number, phone, email, role, police_station, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8)
ON CONFLICT (id) DO UPDATE SET
    last_name = EXCLUDED.last_name,
    id_number = EXCLUDED.id_number,
    phone = EXCLUDED.phone,
    email = EXCLUDED.email,
    role = EXCLUDED.role,
    police_station = EXCLUDED.police_station,
    deleted_at = NULL`
	_, err := r.pool.Exec(ctx, q, i.ID, i.LastName, i.IDNumber, i.Phone, i.Email, string(i.Role), i.PoliceStation, i.CreatedAt)
	return err
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		i    domain.Identity
		role string
	)
	if err := row.Scan(&i.ID, &i.LastName, &i.IDNumber, &i.Phone, &i.Email, &role, &i.PoliceStation, &i.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Role = domain.Role(role)
	return &i, nil
}
