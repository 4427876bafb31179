package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
	"asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/memstore"
)

type recordingSink struct{ entries []audit.Entry }

func (r *recordingSink) Record(_ context.Context, e audit.Entry) { r.entries = append(r.entries, e) }

type failingRepo struct{}

func (failingRepo) GetByNameAndIDNumber(context.Context, string, string) (*domain.Identity, error) {
	return nil, errors.New("connection refused")
}

func seeded(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	deletedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, i := range []*domain.Identity{
		{ID: "both", LastName: "Perera", IDNumber: "901234567V", Phone: "+94771234567", Email: "janaka@example.com", Role: domain.RoleUser},
		{ID: "email-only", LastName: "Silva", IDNumber: "881234567V", Email: "ab@example.com", Role: domain.RolePolice},
		{ID: "gone", LastName: "Fernando", IDNumber: "771234567V", Phone: "+94770000000", Role: domain.RoleUser, DeletedAt: &deletedAt},
	} {
		require.NoError(t, store.Identities().Upsert(ctx, i))
	}
	return store
}

func TestResolve(t *testing.T) {
	store := seeded(t)
	sink := &recordingSink{}
	r := NewResolver(store.Identities(), sink, nil)
	ctx := context.Background()

	res, err := r.Resolve(ctx, "  Perera ", "901234567V")
	require.NoError(t, err)
	assert.Equal(t, "both", res.IdentityID)
	assert.Equal(t, []domain.Channel{domain.ChannelSMS, domain.ChannelEmail}, res.Channels)
	assert.Equal(t, "+94*******67", res.MaskedPhone)
	assert.Equal(t, "j****a@example.com", res.MaskedEmail)
	assert.Equal(t, audit.EventIdentityResolveSuccess, sink.entries[0].Event)
	assert.Equal(t, "both", sink.entries[0].IdentityID)

	res, err = r.Resolve(ctx, "Silva", "881234567V")
	require.NoError(t, err)
	assert.Equal(t, []domain.Channel{domain.ChannelEmail}, res.Channels)
	assert.Empty(t, res.MaskedPhone)
	assert.Equal(t, "**@example.com", res.MaskedEmail)
}

func TestResolve_Failures(t *testing.T) {
	store := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		lastName string
		idNumber string
		wantErr  error
		wantCode diag.Code
	}{
		{"empty last name", " ", "901234567V", ErrInvalidInput, diag.InvalidInput},
		{"empty id number", "Perera", "", ErrInvalidInput, diag.InvalidInput},
		{"wrong id number", "Perera", "000000000V", ErrNotFound, diag.IdentityNotFound},
		{"case differs", "perera", "901234567V", ErrNotFound, diag.IdentityNotFound},
		{"soft deleted", "Fernando", "771234567V", ErrNotFound, diag.IdentityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			r := NewResolver(store.Identities(), sink, nil)
			_, err := r.Resolve(ctx, tt.lastName, tt.idNumber)
			assert.ErrorIs(t, err, tt.wantErr)
			require.Len(t, sink.entries, 1)
			assert.Equal(t, audit.EventIdentityResolveFailure, sink.entries[0].Event)
			assert.Empty(t, sink.entries[0].IdentityID)
			assert.Equal(t, tt.wantCode, sink.entries[0].Code)
		})
	}
}

func TestResolve_RepoError(t *testing.T) {
	r := NewResolver(failingRepo{}, nil, nil)
	_, err := r.Resolve(context.Background(), "Perera", "901234567V")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "077*****67", MaskPhone("0771234567"))
	assert.Equal(t, "*****", MaskPhone("12345"))
	assert.Equal(t, "", MaskPhone(""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a*c@x.io", MaskEmail("abc@x.io"))
	assert.Equal(t, "*@x.io", MaskEmail("a@x.io"))
	assert.Equal(t, "@x.io", MaskEmail("@x.io"))
}
