// Package service implements the session lifecycle: mint on login, validate with sliding expiry, revoke.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/security"
	"asset-registry/backend/internal/session/domain"
	sessionrepo "asset-registry/backend/internal/session/repository"
	telemetryotel "asset-registry/backend/internal/telemetry/otel"
)

// ErrInvalidIdentity is returned by Create for a nil, deleted, or role-less identity.
var ErrInvalidIdentity = errors.New("session: identity not eligible")

// TokenIssuer mints and parses bearer tokens.
type TokenIssuer interface {
	Issue(sessionID string) (string, error)
	Parse(token string) (sessionID string, err error)
}

// ClientInfo describes the caller that logged in.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// ValidateResult is the outcome of validating a bearer token. Principal is set only when Valid.
// Code distinguishes why a token is invalid, for logs and audit; callers see SESSION_INVALID.
type ValidateResult struct {
	Valid     bool
	Principal *domain.Principal
	Code      diag.Code
	Extended  bool
}

// Config holds session lifetimes.
type Config struct {
	TTL           time.Duration
	RefreshWindow time.Duration
}

// Service implements the session lifecycle.
type Service struct {
	repo    sessionrepo.Repository
	tokens  TokenIssuer
	digest  *security.Digester
	cfg     Config
	audit   audit.Sink
	logger  *zap.Logger
	nowF    func() time.Time
	creates *telemetryotel.Outcomes
	checks  *telemetryotel.Outcomes
}

// NewService returns a session Service. auditSink and logger may be nil.
func NewService(repo sessionrepo.Repository, tokens TokenIssuer, digest *security.Digester, cfg Config, auditSink audit.Sink, logger *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.RefreshWindow <= 0 || cfg.RefreshWindow >= cfg.TTL {
		cfg.RefreshWindow = 15 * time.Minute
	}
	if auditSink == nil {
		auditSink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		tokens:  tokens,
		digest:  digest,
		cfg:     cfg,
		audit:   auditSink,
		logger:  logger,
		nowF:    time.Now,
		creates: telemetryotel.NewOutcomes("asset-registry/session", "session.create", "Sessions minted by successful logins."),
		checks:  telemetryotel.NewOutcomes("asset-registry/session", "session.validate", "Session validation outcomes."),
	}
}

// Create revokes every live session of the identity and mints a new one. The raw token is returned
// once in the Grant and never stored.
func (s *Service) Create(ctx context.Context, ident *identitydomain.Identity, client ClientInfo) (*domain.Grant, error) {
	if ident == nil || ident.Deleted() || ident.Role == "" {
		return nil, ErrInvalidIdentity
	}
	now := s.nowF().UTC()
	sessionID := uuid.New().String()
	token, err := s.tokens.Issue(sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	sess := &domain.Session{
		ID:         sessionID,
		IdentityID: ident.ID,
		Role:       ident.Role,
		TokenHash:  s.digest.Digest(token),
		ExpiresAt:  now.Add(s.cfg.TTL),
		ClientIP:   client.IP,
		UserAgent:  client.UserAgent,
		CreatedAt:  now,
	}
	revoked, err := s.repo.ReplaceForIdentity(ctx, sess)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrIdentityNotFound) {
			return nil, ErrInvalidIdentity
		}
		return nil, fmt.Errorf("replace sessions: %w", err)
	}
	s.creates.Add(ctx, "created", diag.OK.String())
	s.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.String("identity_id", ident.ID),
		zap.String("role", string(ident.Role)),
		zap.Int64("revoked_prior", revoked))
	return &domain.Grant{
		Token:      token,
		SessionID:  sessionID,
		IdentityID: ident.ID,
		Role:       ident.Role,
		ExpiresAt:  sess.ExpiresAt,
	}, nil
}

// Validate resolves a bearer token to its principal. An unknown, revoked, or expired session is an
// invalid result, not an error. When the remaining lifetime is at most the refresh window the session
// is extended to now+TTL; an extension never shortens a session.
func (s *Service) Validate(ctx context.Context, token string) (ValidateResult, error) {
	sess, code, err := s.lookup(ctx, token)
	if err != nil {
		return ValidateResult{}, err
	}
	now := s.nowF().UTC()
	if sess != nil && !sess.Live(now) {
		code = diag.SessionExpired
		if sess.Revoked {
			code = diag.SessionAlreadyRevoked
		}
	}
	if code != diag.OK {
		s.checks.Add(ctx, "invalid", code.String())
		return ValidateResult{Code: code}, nil
	}

	p := &domain.Principal{
		SessionID:  sess.ID,
		IdentityID: sess.IdentityID,
		Role:       sess.Role,
		ExpiresAt:  sess.ExpiresAt,
	}
	res := ValidateResult{Valid: true, Principal: p, Code: diag.OK}
	if sess.ExpiresAt.Sub(now) <= s.cfg.RefreshWindow {
		next := now.Add(s.cfg.TTL)
		ok, err := s.repo.Extend(ctx, sess.ID, next)
		if err != nil {
			return ValidateResult{}, fmt.Errorf("extend session: %w", err)
		}
		if ok {
			p.ExpiresAt = next
			res.Extended = true
		}
	}
	s.checks.Add(ctx, "valid", diag.OK.String())
	return res, nil
}

// Revoke ends the session named by token. Revoking twice reports AlreadyRevoked; of two concurrent
// revokes exactly one observes Revoked.
func (s *Service) Revoke(ctx context.Context, token string) (domain.RevokeResult, error) {
	sess, code, err := s.lookup(ctx, token)
	if err != nil {
		return "", err
	}
	result, identityID := domain.NotFound, ""
	if code == diag.OK {
		identityID = sess.IdentityID
		now := s.nowF().UTC()
		switch {
		case sess.Revoked:
			result = domain.AlreadyRevoked
		case !sess.Live(now):
			result = domain.Expired
		default:
			ok, err := s.repo.Revoke(ctx, sess.ID, now)
			if err != nil {
				return "", fmt.Errorf("revoke session: %w", err)
			}
			result = domain.Revoked
			if !ok {
				result = domain.AlreadyRevoked
			}
		}
	}
	s.audit.Record(ctx, audit.Entry{
		Event:      audit.Outcome(result == domain.Revoked, audit.EventSessionRevokeSuccess, audit.EventSessionRevokeFailure),
		IdentityID: identityID,
		Success:    result == domain.Revoked,
		Code:       RevokeCode(result),
	})
	return result, nil
}

// RevokeCode maps a revoke result to its diagnostic code.
func RevokeCode(r domain.RevokeResult) diag.Code {
	switch r {
	case domain.Revoked:
		return diag.OK
	case domain.AlreadyRevoked:
		return diag.SessionAlreadyRevoked
	case domain.Expired:
		return diag.SessionExpired
	default:
		return diag.SessionNotFound
	}
}

// lookup parses and digests the token and loads its session. code is SessionNotFound when the token is
// malformed, unknown, or names a different session than the row it digests to.
func (s *Service) lookup(ctx context.Context, token string) (*domain.Session, diag.Code, error) {
	if token == "" {
		return nil, diag.SessionNotFound, nil
	}
	sid, err := s.tokens.Parse(token)
	if err != nil {
		return nil, diag.SessionNotFound, nil
	}
	sess, err := s.repo.GetByTokenHash(ctx, s.digest.Digest(token))
	if err != nil {
		return nil, "", fmt.Errorf("get session: %w", err)
	}
	if sess == nil || sess.ID != sid {
		return nil, diag.SessionNotFound, nil
	}
	return sess, diag.OK, nil
}

// ensure the security provider satisfies TokenIssuer.
var _ TokenIssuer = (*security.TokenProvider)(nil)
