// Package audit records security events. Recording is best-effort: a failed write is logged and never
// changes the outcome returned to the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"asset-registry/backend/internal/audit/domain"
	auditrepo "asset-registry/backend/internal/audit/repository"
	"asset-registry/backend/internal/diag"
	"asset-registry/backend/internal/telemetry"
)

// SentinelIdentityID is recorded when the caller's identity is not known (e.g. a failed lookup).
const SentinelIdentityID = "_unknown"

// Security event names.
const (
	EventIdentityResolveSuccess = "IDENTITY_RESOLVE_SUCCESS"
	EventIdentityResolveFailure = "IDENTITY_RESOLVE_FAILURE"
	EventOTPIssueSuccess        = "OTP_ISSUE_SUCCESS"
	EventOTPIssueFailure        = "OTP_ISSUE_FAILURE"
	EventOTPVerifySuccess       = "OTP_VERIFY_SUCCESS"
	EventOTPVerifyFailure       = "OTP_VERIFY_FAILURE"
	EventSessionRevokeSuccess   = "SESSION_REVOKE_SUCCESS"
	EventSessionRevokeFailure   = "SESSION_REVOKE_FAILURE"
)

// Outcome picks the success or failure event name.
func Outcome(success bool, onSuccess, onFailure string) string {
	if success {
		return onSuccess
	}
	return onFailure
}

// Entry is what a caller knows about an event; the Logger adds id, time, and client info.
type Entry struct {
	Event      string
	IdentityID string
	Channel    string
	Success    bool
	Code       diag.Code
}

// Sink records security events. Record never fails from the caller's point of view.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// ClientInfoExtractor returns the client IP and user agent from the request context.
type ClientInfoExtractor func(context.Context) (ip, userAgent string)

// Logger implements Sink: it persists to the audit repository and forwards to optional emitters.
type Logger struct {
	repo       auditrepo.Repository
	clientInfo ClientInfoExtractor
	emitters   []telemetry.EventEmitter
	logger     *zap.Logger
	nowF       func() time.Time
}

// NewLogger returns a Logger. repo and clientInfo may be nil; then nothing is persisted and IP and
// user agent are recorded as "unknown".
func NewLogger(repo auditrepo.Repository, clientInfo ClientInfoExtractor, logger *zap.Logger, emitters ...telemetry.EventEmitter) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{
		repo:       repo,
		clientInfo: clientInfo,
		emitters:   emitters,
		logger:     logger,
		nowF:       time.Now,
	}
}

// Record writes one audit event. Errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, e Entry) {
	ip, ua := "unknown", "unknown"
	if l.clientInfo != nil {
		if gotIP, gotUA := l.clientInfo(ctx); gotIP != "" || gotUA != "" {
			ip, ua = orUnknown(gotIP), orUnknown(gotUA)
		}
	}
	identityID := e.IdentityID
	if identityID == "" {
		identityID = SentinelIdentityID
	}
	code := e.Code
	if code == "" {
		code = diag.OK
	}
	event := &domain.AuditEvent{
		ID:             uuid.New().String(),
		Event:          e.Event,
		IdentityID:     identityID,
		Channel:        e.Channel,
		Success:        e.Success,
		DiagnosticCode: code.String(),
		IP:             ip,
		UserAgent:      ua,
		CreatedAt:      l.nowF().UTC(),
	}
	if l.repo != nil {
		if err := l.repo.Create(ctx, event); err != nil {
			l.logger.Warn("audit: write failed",
				zap.String("event", event.Event),
				zap.String("diagnostic_code", event.DiagnosticCode),
				zap.Error(err))
		}
	}
	for _, em := range l.emitters {
		if em == nil {
			continue
		}
		if err := em.Emit(ctx, event); err != nil {
			l.logger.Warn("audit: emit failed", zap.String("event", event.Event), zap.Error(err))
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// Nop is a Sink that drops every event.
type Nop struct{}

func (Nop) Record(context.Context, Entry) {}
