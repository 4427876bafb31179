package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/memstore"
)

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	repo := store.Identities()

	require.NoError(t, Run(ctx, repo, zaptest.NewLogger(t)))
	require.NoError(t, Run(ctx, repo, nil))

	for _, want := range Identities() {
		got, err := repo.GetByNameAndIDNumber(ctx, want.LastName, want.IDNumber)
		require.NoError(t, err)
		require.Equal(t, want.ID, got.ID)
		require.Equal(t, want.Role, got.Role)
	}
	station, err := repo.GetPoliceStation(ctx, "dev-police-001")
	require.NoError(t, err)
	require.Equal(t, "Colombo Fort", station)
}

func TestIdentities_CoverEveryRole(t *testing.T) {
	seen := map[domain.Role]bool{}
	for _, ident := range Identities() {
		require.True(t, ident.Role.Known())
		require.NotEmpty(t, ident.Channels(), ident.ID)
		seen[ident.Role] = true
	}
	require.Len(t, seen, 4)
}

type failingRepo struct{}

func (failingRepo) Upsert(context.Context, *domain.Identity) error { return errors.New("boom") }

func TestRun_PropagatesError(t *testing.T) {
	err := Run(context.Background(), failingRepo{}, nil)
	require.ErrorContains(t, err, "seed dev-user-001")
}
