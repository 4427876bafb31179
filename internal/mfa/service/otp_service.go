// Package service implements the OTP login lifecycle: issue and dispatch a challenge, then verify it
// and hand a successful verification to the session lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/mfa"
	"asset-registry/backend/internal/mfa/dispatch"
	"asset-registry/backend/internal/mfa/domain"
	mfarepo "asset-registry/backend/internal/mfa/repository"
	"asset-registry/backend/internal/security"
	sessiondomain "asset-registry/backend/internal/session/domain"
	sessionservice "asset-registry/backend/internal/session/service"
	telemetryotel "asset-registry/backend/internal/telemetry/otel"
)

// Sentinel errors for the OTP service; the handler maps them to gRPC codes.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("identity not found")
	ErrContactMissing = errors.New("no contact on file for channel")
	ErrDispatchFailed = errors.New("otp dispatch failed")
	ErrResendTooSoon  = errors.New("otp requested too soon")
)

// ResendTooSoonError carries how long the caller must wait before requesting another code.
// It matches ErrResendTooSoon with errors.Is.
type ResendTooSoonError struct {
	RetryAfter time.Duration
}

func (e *ResendTooSoonError) Error() string { return ErrResendTooSoon.Error() }

func (e *ResendTooSoonError) Is(target error) bool { return target == ErrResendTooSoon }

// IdentityRepo is the minimal identity repository needed by the OTP service.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
}

// Dispatcher delivers a passcode over its channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, m dispatch.Message) error
}

// SessionCreator mints a session after a successful verification.
type SessionCreator interface {
	Create(ctx context.Context, ident *identitydomain.Identity, client sessionservice.ClientInfo) (*sessiondomain.Grant, error)
}

// Config holds OTP limits.
type Config struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

// IssueResult is returned by a successful Issue. The code itself only travels through the dispatcher.
type IssueResult struct {
	ChallengeID string
	ExpiresAt   time.Time
}

// VerifyResult is the outcome of Verify. Grant is set only when Status is StatusAuthenticated.
type VerifyResult struct {
	Status            domain.VerifyStatus
	AttemptsRemaining int
	Code              diag.Code
	Grant             *sessiondomain.Grant
}

// Service implements OTP issue and verify.
type Service struct {
	identities IdentityRepo
	challenges mfarepo.Repository
	dispatcher Dispatcher
	sessions   SessionCreator
	digest     *security.Digester
	cfg        Config
	audit      audit.Sink
	logger     *zap.Logger
	nowF       func() time.Time
	generate   func() (string, error)
	issues     *telemetryotel.Outcomes
	verifies   *telemetryotel.Outcomes
}

// NewService returns an OTP Service. auditSink and logger may be nil.
func NewService(
	identities IdentityRepo,
	challenges mfarepo.Repository,
	dispatcher Dispatcher,
	sessions SessionCreator,
	digest *security.Digester,
	cfg Config,
	auditSink audit.Sink,
	logger *zap.Logger,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ResendCooldown < 0 {
		cfg.ResendCooldown = 0
	}
	if auditSink == nil {
		auditSink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		identities: identities,
		challenges: challenges,
		dispatcher: dispatcher,
		sessions:   sessions,
		digest:     digest,
		cfg:        cfg,
		audit:      auditSink,
		logger:     logger,
		nowF:       time.Now,
		generate:   mfa.GenerateCode,
		issues:     telemetryotel.NewOutcomes("asset-registry/otp", "otp.issue", "OTP issue outcomes."),
		verifies:   telemetryotel.NewOutcomes("asset-registry/otp", "otp.verify", "OTP verification outcomes."),
	}
}

// Issue creates a fresh challenge for the identity, invalidating any earlier one, and sends the code
// over channel. Every outcome is audited.
func (s *Service) Issue(ctx context.Context, identityID string, channel identitydomain.Channel) (*IssueResult, error) {
	identityID = strings.TrimSpace(identityID)
	ch, ok := identitydomain.ParseChannel(string(channel))
	if identityID == "" || !ok {
		s.issueFailed(ctx, identityID, channel, diag.InvalidInput)
		return nil, ErrInvalidInput
	}

	ident, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		s.issueFailed(ctx, identityID, ch, diag.Internal)
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if ident == nil || ident.Deleted() {
		s.issueFailed(ctx, "", ch, diag.IdentityNotFound)
		return nil, ErrNotFound
	}
	to := ident.Contact(ch)
	if to == "" {
		s.issueFailed(ctx, identityID, ch, diag.ContactMissing)
		return nil, ErrContactMissing
	}

	code, err := s.generate()
	if err != nil {
		s.issueFailed(ctx, identityID, ch, diag.Internal)
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	now := s.nowF().UTC()
	c := &domain.Challenge{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		CodeHash:   s.digest.Digest(code),
		Channel:    ch,
		ExpiresAt:  now.Add(s.cfg.TTL),
		CreatedAt:  now,
	}
	if err := s.challenges.Replace(ctx, c, s.cfg.ResendCooldown); err != nil {
		var cooldown *mfarepo.CooldownError
		switch {
		case errors.As(err, &cooldown):
			s.issueFailed(ctx, identityID, ch, diag.ResendTooSoon)
			return nil, &ResendTooSoonError{RetryAfter: cooldown.RetryAfter}
		case errors.Is(err, mfarepo.ErrIdentityNotFound):
			s.issueFailed(ctx, "", ch, diag.IdentityNotFound)
			return nil, ErrNotFound
		}
		s.issueFailed(ctx, identityID, ch, diag.Internal)
		return nil, fmt.Errorf("replace challenge: %w", err)
	}

	err = s.dispatcher.Dispatch(ctx, dispatch.Message{
		ChallengeID: c.ID,
		Channel:     ch,
		To:          to,
		Code:        code,
		ExpiresAt:   c.ExpiresAt,
	})
	if err != nil {
		s.logger.Warn("otp dispatch failed",
			zap.String("challenge_id", c.ID),
			zap.String("identity_id", identityID),
			zap.String("channel", string(ch)),
			zap.Error(err))
		if markErr := s.challenges.MarkDispatchFailed(ctx, c.ID); markErr != nil {
			s.logger.Error("otp: close undelivered challenge", zap.String("challenge_id", c.ID), zap.Error(markErr))
		}
		s.issueFailed(ctx, identityID, ch, diag.DispatchFailed)
		return nil, fmt.Errorf("%w: %s", ErrDispatchFailed, ch)
	}

	s.issues.Add(ctx, "issued", diag.OK.String())
	s.audit.Record(ctx, audit.Entry{
		Event:      audit.EventOTPIssueSuccess,
		IdentityID: identityID,
		Channel:    string(ch),
		Success:    true,
		Code:       diag.OK,
	})
	s.logger.Info("otp issued",
		zap.String("challenge_id", c.ID),
		zap.String("identity_id", identityID),
		zap.String("channel", string(ch)))
	return &IssueResult{ChallengeID: c.ID, ExpiresAt: c.ExpiresAt}, nil
}

func (s *Service) issueFailed(ctx context.Context, identityID string, ch identitydomain.Channel, code diag.Code) {
	s.issues.Add(ctx, "failed", code.String())
	s.audit.Record(ctx, audit.Entry{
		Event:      audit.EventOTPIssueFailure,
		IdentityID: identityID,
		Channel:    string(ch),
		Code:       code,
	})
}

// Verify checks code against the identity's latest challenge. Retry, LockedOut and Expired are results,
// not errors. The lock check runs before every other check, so once the cap is reached even the correct
// code is rejected with LockedOut until a new challenge is issued.
func (s *Service) Verify(ctx context.Context, identityID, code string, client sessionservice.ClientInfo) (VerifyResult, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" || !mfa.ValidCode(code) {
		s.verifyAudit(ctx, identityID, "", diag.InvalidInput)
		return VerifyResult{}, ErrInvalidInput
	}

	c, err := s.challenges.GetLatest(ctx, identityID)
	if err != nil {
		return VerifyResult{}, s.verifyFault(ctx, identityID, "", fmt.Errorf("get challenge: %w", err))
	}
	now := s.nowF().UTC()
	if c == nil {
		return s.verified(ctx, identityID, "", expiredResult), nil
	}
	if c.Attempts >= s.cfg.MaxAttempts {
		if !c.Used {
			if err := s.challenges.Close(ctx, c.ID); err != nil {
				return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("close challenge: %w", err))
			}
		}
		return s.verified(ctx, identityID, c.Channel, lockedResult), nil
	}
	if c.Used {
		return s.verified(ctx, identityID, c.Channel, expiredResult), nil
	}
	if c.Expired(now) {
		if err := s.challenges.Close(ctx, c.ID); err != nil {
			return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("close challenge: %w", err))
		}
		return s.verified(ctx, identityID, c.Channel, expiredResult), nil
	}

	if !s.digest.Equal(code, c.CodeHash) {
		attempts, closed, err := s.challenges.RecordFailure(ctx, c.ID, s.cfg.MaxAttempts)
		switch {
		case errors.Is(err, mfarepo.ErrChallengeClosed):
			return s.lostRace(ctx, identityID, c)
		case err != nil:
			return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("record failure: %w", err))
		case closed:
			return s.verified(ctx, identityID, c.Channel, lockedResult), nil
		}
		return s.verified(ctx, identityID, c.Channel, VerifyResult{
			Status:            domain.StatusRetry,
			AttemptsRemaining: s.cfg.MaxAttempts - attempts,
			Code:              diag.OTPMismatch,
		}), nil
	}

	consumed, err := s.challenges.Consume(ctx, c.ID, now)
	if err != nil {
		return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("consume challenge: %w", err))
	}
	if !consumed {
		return s.lostRace(ctx, identityID, c)
	}

	ident, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("get identity: %w", err))
	}
	grant, err := s.sessions.Create(ctx, ident, client)
	if errors.Is(err, sessionservice.ErrInvalidIdentity) {
		s.verifyAudit(ctx, "", c.Channel, diag.IdentityNotFound)
		return VerifyResult{}, ErrNotFound
	}
	if err != nil {
		return VerifyResult{}, s.verifyFault(ctx, identityID, c.Channel, fmt.Errorf("create session: %w", err))
	}
	return s.verified(ctx, identityID, c.Channel, VerifyResult{
		Status: domain.StatusAuthenticated,
		Code:   diag.OK,
		Grant:  grant,
	}), nil
}

var (
	expiredResult = VerifyResult{Status: domain.StatusExpired, Code: diag.OTPExpired}
	lockedResult  = VerifyResult{Status: domain.StatusLockedOut, Code: diag.OTPLocked}
)

// lostRace resolves a challenge that another request closed between the read and the write.
// It is reported as LockedOut when the concurrent request exhausted the attempts, Expired otherwise.
func (s *Service) lostRace(ctx context.Context, identityID string, seen *domain.Challenge) (VerifyResult, error) {
	c, err := s.challenges.GetLatest(ctx, identityID)
	if err != nil {
		return VerifyResult{}, s.verifyFault(ctx, identityID, seen.Channel, fmt.Errorf("get challenge: %w", err))
	}
	if c != nil && c.ID == seen.ID && c.Attempts >= s.cfg.MaxAttempts {
		return s.verified(ctx, identityID, c.Channel, lockedResult), nil
	}
	return s.verified(ctx, identityID, seen.Channel, expiredResult), nil
}

// verifyFault audits an internal failure during verification and returns err unchanged.
func (s *Service) verifyFault(ctx context.Context, identityID string, ch identitydomain.Channel, err error) error {
	s.verifyAudit(ctx, identityID, ch, diag.Internal)
	return err
}

// verified audits and counts a verification result and returns it.
func (s *Service) verified(ctx context.Context, identityID string, ch identitydomain.Channel, res VerifyResult) VerifyResult {
	s.verifyAudit(ctx, identityID, ch, res.Code)
	if res.Status != domain.StatusAuthenticated {
		s.logger.Info("otp verify rejected",
			zap.String("identity_id", identityID),
			zap.String("status", string(res.Status)),
			zap.String("diagnostic_code", res.Code.String()))
	}
	return res
}

func (s *Service) verifyAudit(ctx context.Context, identityID string, ch identitydomain.Channel, code diag.Code) {
	success := code == diag.OK
	s.verifies.Add(ctx, audit.Outcome(success, "authenticated", "rejected"), code.String())
	s.audit.Record(ctx, audit.Entry{
		Event:      audit.Outcome(success, audit.EventOTPVerifySuccess, audit.EventOTPVerifyFailure),
		IdentityID: identityID,
		Channel:    string(ch),
		Success:    success,
		Code:       code,
	})
}
