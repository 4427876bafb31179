// Package service resolves a person's (last name, id number) to a login-eligible identity and the
// masked delivery channels they can receive a passcode on.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
	"asset-registry/backend/internal/identity/domain"
)

// Sentinel errors for the resolver; the handler maps them to gRPC codes.
var (
	ErrInvalidInput = errors.New("last name and id number are required")
	// ErrNotFound never says which field failed to match.
	ErrNotFound = errors.New("identity not found")
)

// IdentityRepo is the minimal identity repository needed by the resolver.
type IdentityRepo interface {
	GetByNameAndIDNumber(ctx context.Context, lastName, idNumber string) (*domain.Identity, error)
}

// Resolution is what Resolve reveals about an identity. Contact values are masked.
type Resolution struct {
	IdentityID  string
	Channels    []domain.Channel
	MaskedPhone string
	MaskedEmail string
}

// Resolver implements identity resolution.
type Resolver struct {
	repo   IdentityRepo
	audit  audit.Sink
	logger *zap.Logger
}

// NewResolver returns a Resolver. auditSink and logger may be nil.
func NewResolver(repo IdentityRepo, auditSink audit.Sink, logger *zap.Logger) *Resolver {
	if auditSink == nil {
		auditSink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{repo: repo, audit: auditSink, logger: logger}
}

// Resolve looks up a non-deleted identity by exact last name and id number.
func (r *Resolver) Resolve(ctx context.Context, lastName, idNumber string) (*Resolution, error) {
	lastName, idNumber = strings.TrimSpace(lastName), strings.TrimSpace(idNumber)
	if lastName == "" || idNumber == "" {
		r.failed(ctx, diag.InvalidInput)
		return nil, ErrInvalidInput
	}
	ident, err := r.repo.GetByNameAndIDNumber(ctx, lastName, idNumber)
	if err != nil {
		r.failed(ctx, diag.Internal)
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if ident == nil || ident.Deleted() {
		r.failed(ctx, diag.IdentityNotFound)
		return nil, ErrNotFound
	}

	res := &Resolution{IdentityID: ident.ID, Channels: ident.Channels()}
	if ident.Phone != "" {
		res.MaskedPhone = MaskPhone(ident.Phone)
	}
	if ident.Email != "" {
		res.MaskedEmail = MaskEmail(ident.Email)
	}
	r.audit.Record(ctx, audit.Entry{
		Event:      audit.EventIdentityResolveSuccess,
		IdentityID: ident.ID,
		Success:    true,
		Code:       diag.OK,
	})
	r.logger.Debug("identity resolved", zap.String("identity_id", ident.ID), zap.Int("channels", len(res.Channels)))
	return res, nil
}

func (r *Resolver) failed(ctx context.Context, code diag.Code) {
	r.audit.Record(ctx, audit.Entry{
		Event: audit.EventIdentityResolveFailure,
		Code:  code,
	})
}

// MaskPhone keeps the first 3 and last 2 characters, e.g. "+94*******67". Values too short to
// mask that way are fully starred.
func MaskPhone(phone string) string {
	r := []rune(phone)
	if len(r) <= 5 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:3]) + strings.Repeat("*", len(r)-5) + string(r[len(r)-2:])
}

// MaskEmail keeps the first and last character of the local part and the whole domain,
// e.g. "j******e@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return MaskPhone(email)
	}
	local, host := []rune(email[:at]), email[at:]
	switch len(local) {
	case 0:
		return host
	case 1, 2:
		return strings.Repeat("*", len(local)) + host
	}
	return string(local[0]) + strings.Repeat("*", len(local)-2) + string(local[len(local)-1]) + host
}
