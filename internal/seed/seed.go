// Package seed inserts development identities so the OTP login flow can be exercised locally.
// Upserts are keyed by id, so running it twice leaves the same rows.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"asset-registry/backend/internal/identity/domain"
)

// Upserter stores an identity, replacing any row with the same id.
type Upserter interface {
	Upsert(ctx context.Context, i *domain.Identity) error
}

// Identities returns one development identity per role.
func Identities() []*domain.Identity {
	return []*domain.Identity{
		{ID: "dev-user-001", LastName: "Perera", IDNumber: "901234567V", Phone: "+94771234567", Email: "user@example.com", Role: domain.RoleUser},
		{ID: "dev-police-001", LastName: "Fernando", IDNumber: "850000002V", Phone: "+94770000002", Role: domain.RolePolice, PoliceStation: "Colombo Fort"},
		{ID: "dev-admin-001", LastName: "Silva", IDNumber: "800000001V", Email: "admin@example.com", Role: domain.RoleAdmin},
		{ID: "dev-cashier-001", LastName: "Jayasuriya", IDNumber: "880000003V", Phone: "+94770000003", Role: domain.RoleCashier},
	}
}

// Run upserts every development identity into repo.
func Run(ctx context.Context, repo Upserter, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, ident := range Identities() {
		if err := repo.Upsert(ctx, ident); err != nil {
			return fmt.Errorf("seed %s: %w", ident.ID, err)
		}
		logger.Info("seeded identity",
			zap.String("identity_id", ident.ID),
			zap.String("role", string(ident.Role)),
			zap.String("last_name", ident.LastName),
			zap.String("id_number", ident.IDNumber),
		)
	}
	return nil
}
