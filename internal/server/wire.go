package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"asset-registry/backend/internal/access"
	"asset-registry/backend/internal/audit"
	auditrepo "asset-registry/backend/internal/audit/repository"
	identityrepo "asset-registry/backend/internal/identity/repository"
	identityservice "asset-registry/backend/internal/identity/service"
	mfarepo "asset-registry/backend/internal/mfa/repository"
	mfaservice "asset-registry/backend/internal/mfa/service"
	"asset-registry/backend/internal/security"
	"asset-registry/backend/internal/server/interceptors"
	sessionrepo "asset-registry/backend/internal/session/repository"
	sessionservice "asset-registry/backend/internal/session/service"
	"asset-registry/backend/internal/telemetry"
)

// Stores are the persistence backends the services run on: Postgres repositories in production or
// internal/memstore views in development and tests.
type Stores struct {
	Identities identityrepo.Repository
	Challenges mfarepo.Repository
	Sessions   sessionrepo.Repository
	Audit      auditrepo.Repository
}

// Options configure the services built by Build.
type Options struct {
	Tokens     sessionservice.TokenIssuer
	Pepper     []byte
	Session    sessionservice.Config
	OTP        mfaservice.Config
	Dispatcher mfaservice.Dispatcher
	// Policy is the Rego access policy; empty uses access.DefaultPolicy.
	Policy        string
	AuditEmitters []telemetry.EventEmitter
	Logger        *zap.Logger
}

// Build wires the services over stores and returns Deps with the auth core, audit and access
// readiness filled in. Callers add HealthPinger, DevOTPHandler and rate limits.
func Build(ctx context.Context, stores Stores, opts Options) (Deps, *access.Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	otpDigest, err := security.NewDigester(opts.Pepper, security.PurposeOTP)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("otp digester: %w", err)
	}
	sessionDigest, err := security.NewDigester(opts.Pepper, security.PurposeSession)
	if err != nil {
		return Deps{}, nil, fmt.Errorf("session digester: %w", err)
	}
	policy := opts.Policy
	if policy == "" {
		policy = access.DefaultPolicy
	}
	controller, err := access.NewController(ctx, stores.Identities, policy, logger.Named("access"))
	if err != nil {
		return Deps{}, nil, fmt.Errorf("access controller: %w", err)
	}

	sink := audit.NewLogger(stores.Audit, interceptors.ClientInfo, logger.Named("audit"), opts.AuditEmitters...)
	sessions := sessionservice.NewService(stores.Sessions, opts.Tokens, sessionDigest, opts.Session, sink, logger.Named("session"))
	otp := mfaservice.NewService(stores.Identities, stores.Challenges, opts.Dispatcher, sessions, otpDigest, opts.OTP, sink, logger.Named("otp"))
	resolver := identityservice.NewResolver(stores.Identities, sink, logger.Named("identity"))

	return Deps{
		Identities:          resolver,
		OTP:                 otp,
		Sessions:            sessions,
		Access:              controller,
		AuditRepo:           stores.Audit,
		AuditSink:           sink,
		HealthPolicyChecker: controller,
		Logger:              logger,
	}, controller, nil
}
