package handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	authv1 "asset-registry/backend/api/auth/v1"
	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/access"
	"asset-registry/backend/internal/diag"
	identitydomain "asset-registry/backend/internal/identity/domain"
	identityservice "asset-registry/backend/internal/identity/service"
	mfaservice "asset-registry/backend/internal/mfa/service"
	"asset-registry/backend/internal/server/interceptors"
	sessiondomain "asset-registry/backend/internal/session/domain"
	sessionservice "asset-registry/backend/internal/session/service"
)

// IdentityResolver resolves login input to an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, lastName, idNumber string) (*identityservice.Resolution, error)
}

// OTPService issues and verifies one-time passcodes.
type OTPService interface {
	Issue(ctx context.Context, identityID string, channel identitydomain.Channel) (*mfaservice.IssueResult, error)
	Verify(ctx context.Context, identityID, code string, client sessionservice.ClientInfo) (mfaservice.VerifyResult, error)
}

// SessionService validates and revokes sessions.
type SessionService interface {
	Validate(ctx context.Context, token string) (sessionservice.ValidateResult, error)
	Revoke(ctx context.Context, token string) (sessiondomain.RevokeResult, error)
}

// AccessResolver maps a principal to its access predicate.
type AccessResolver interface {
	Resolve(ctx context.Context, p *sessiondomain.Principal) access.Predicate
}

// AuthServer implements asset.auth.v1.AuthService: OTP login, session validation and revocation, and
// access-predicate resolution. Expected outcomes travel in responses; only faults and rejected input
// become gRPC errors.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	identities IdentityResolver
	otp        OTPService
	sessions   SessionService
	access     AccessResolver
	logger     *zap.Logger
}

// NewAuthServer returns a new Auth gRPC server. logger may be nil.
func NewAuthServer(identities IdentityResolver, otp OTPService, sessions SessionService, accessResolver AccessResolver, logger *zap.Logger) *AuthServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthServer{
		identities: identities,
		otp:        otp,
		sessions:   sessions,
		access:     accessResolver,
		logger:     logger,
	}
}

// Identify resolves (last name, id number) to an identity and its masked delivery channels.
func (s *AuthServer) Identify(ctx context.Context, req *authv1.IdentifyRequest) (*authv1.IdentifyResponse, error) {
	res, err := s.identities.Resolve(ctx, req.LastName, req.IDNumber)
	if err != nil {
		switch {
		case errors.Is(err, identityservice.ErrInvalidInput):
			return nil, rpc.Error(codes.InvalidArgument, diag.InvalidInput, "last_name and id_number are required")
		case errors.Is(err, identityservice.ErrNotFound):
			return nil, rpc.Error(codes.NotFound, diag.IdentityNotFound, "identity not found")
		}
		return nil, s.internal("identify", err)
	}
	channels := make([]string, 0, len(res.Channels))
	for _, ch := range res.Channels {
		channels = append(channels, string(ch))
	}
	return &authv1.IdentifyResponse{
		IdentityID:  res.IdentityID,
		Channels:    channels,
		MaskedPhone: res.MaskedPhone,
		MaskedEmail: res.MaskedEmail,
	}, nil
}

// DispatchOtp issues a fresh passcode and sends it over the requested channel.
func (s *AuthServer) DispatchOtp(ctx context.Context, req *authv1.DispatchOtpRequest) (*authv1.DispatchOtpResponse, error) {
	res, err := s.otp.Issue(ctx, req.IdentityID, identitydomain.Channel(req.Channel))
	if err != nil {
		var tooSoon *mfaservice.ResendTooSoonError
		switch {
		case errors.As(err, &tooSoon):
			return nil, rpc.RetryError(codes.ResourceExhausted, diag.ResendTooSoon, "passcode requested too soon", tooSoon.RetryAfter)
		case errors.Is(err, mfaservice.ErrInvalidInput):
			return nil, rpc.Error(codes.InvalidArgument, diag.InvalidInput, "identity_id and a supported channel are required")
		case errors.Is(err, mfaservice.ErrNotFound):
			return nil, rpc.Error(codes.NotFound, diag.IdentityNotFound, "identity not found")
		case errors.Is(err, mfaservice.ErrContactMissing):
			return nil, rpc.Error(codes.FailedPrecondition, diag.ContactMissing, "no contact on file for channel")
		case errors.Is(err, mfaservice.ErrDispatchFailed):
			return nil, rpc.Error(codes.Unavailable, diag.DispatchFailed, "passcode could not be delivered")
		}
		return nil, s.internal("dispatch otp", err)
	}
	return &authv1.DispatchOtpResponse{ChallengeID: res.ChallengeID, ExpiresAt: res.ExpiresAt}, nil
}

// VerifyOtp checks a passcode. Retry, LockedOut and Expired are returned as response statuses.
func (s *AuthServer) VerifyOtp(ctx context.Context, req *authv1.VerifyOtpRequest) (*authv1.VerifyOtpResponse, error) {
	ip, ua := interceptors.ClientInfo(ctx)
	res, err := s.otp.Verify(ctx, req.IdentityID, req.Code, sessionservice.ClientInfo{IP: ip, UserAgent: ua})
	if err != nil {
		switch {
		case errors.Is(err, mfaservice.ErrInvalidInput):
			return nil, rpc.Error(codes.InvalidArgument, diag.InvalidInput, "identity_id and a 6-digit code are required")
		case errors.Is(err, mfaservice.ErrNotFound):
			return nil, rpc.Error(codes.NotFound, diag.IdentityNotFound, "identity not found")
		}
		return nil, s.internal("verify otp", err)
	}
	resp := &authv1.VerifyOtpResponse{
		Status:            string(res.Status),
		AttemptsRemaining: int32(res.AttemptsRemaining),
		Diagnostic:        res.Code.String(),
	}
	if g := res.Grant; g != nil {
		exp := g.ExpiresAt
		resp.Token = g.Token
		resp.SessionID = g.SessionID
		resp.Role = string(g.Role)
		resp.ExpiresAt = &exp
	}
	return resp, nil
}

// ValidateSession resolves a bearer token to its principal, sliding its expiry when due.
func (s *AuthServer) ValidateSession(ctx context.Context, req *authv1.ValidateSessionRequest) (*authv1.ValidateSessionResponse, error) {
	res, err := s.sessions.Validate(ctx, req.Token)
	if err != nil {
		return nil, s.internal("validate session", err)
	}
	if !res.Valid {
		return nil, rpc.Error(codes.Unauthenticated, diag.SessionInvalid, "session is not valid")
	}
	p := res.Principal
	return &authv1.ValidateSessionResponse{
		IdentityID: p.IdentityID,
		Role:       string(p.Role),
		SessionID:  p.SessionID,
		ExpiresAt:  p.ExpiresAt,
		Extended:   res.Extended,
	}, nil
}

// RevokeSession ends the session named by the token in the request, or by the caller's bearer token
// when the request carries none.
func (s *AuthServer) RevokeSession(ctx context.Context, req *authv1.RevokeSessionRequest) (*authv1.RevokeSessionResponse, error) {
	token := req.Token
	if token == "" {
		token = interceptors.GetToken(ctx)
	}
	result, err := s.sessions.Revoke(ctx, token)
	if err != nil {
		return nil, s.internal("revoke session", err)
	}
	switch result {
	case sessiondomain.Revoked:
		return &authv1.RevokeSessionResponse{Result: string(result)}, nil
	case sessiondomain.AlreadyRevoked:
		return nil, rpc.Error(codes.FailedPrecondition, diag.SessionAlreadyRevoked, "session already revoked")
	case sessiondomain.Expired:
		return nil, rpc.Error(codes.FailedPrecondition, diag.SessionExpired, "session expired")
	default:
		return nil, rpc.Error(codes.NotFound, diag.SessionNotFound, "session not found")
	}
}

// ResolveAccess returns the caller's access predicate and its compiled SQL filter. It never fails:
// anonymous callers get the public scope, and any resolution problem yields DENY_ALL.
func (s *AuthServer) ResolveAccess(ctx context.Context, req *authv1.ResolveAccessRequest) (*authv1.ResolveAccessResponse, error) {
	pred := s.access.Resolve(ctx, interceptors.PrincipalFromContext(ctx))
	offset := int(req.ArgOffset)
	if offset < 0 {
		offset = 0
	}
	where, args := pred.SQL(access.FilterOptions{IncludeDeleted: req.IncludeDeleted, ArgOffset: offset})
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = fmt.Sprint(a)
	}
	return &authv1.ResolveAccessResponse{
		Kind:       string(pred.Kind),
		IdentityID: pred.IdentityID,
		Station:    pred.Station,
		Where:      where,
		Args:       out,
	}, nil
}

// internal logs the cause and returns a generic Internal error.
func (s *AuthServer) internal(op string, err error) error {
	s.logger.Error("auth: "+op+" failed", zap.Error(err))
	return rpc.Error(codes.Internal, diag.Internal, "internal error")
}

