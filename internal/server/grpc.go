package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	auditv1 "asset-registry/backend/api/audit/v1"
	authv1 "asset-registry/backend/api/auth/v1"
	devv1 "asset-registry/backend/api/dev/v1"
	"asset-registry/backend/internal/audit"
	audithandler "asset-registry/backend/internal/audit/handler"
	auditrepo "asset-registry/backend/internal/audit/repository"
	healthhandler "asset-registry/backend/internal/health/handler"
	identityhandler "asset-registry/backend/internal/identity/handler"
	"asset-registry/backend/internal/server/interceptors"
)

// Deps holds service dependencies for gRPC handlers and interceptors.
type Deps struct {
	Identities identityhandler.IdentityResolver
	OTP        identityhandler.OTPService
	// Sessions also backs the auth interceptor.
	Sessions identityhandler.SessionService
	Access   identityhandler.AccessResolver
	// AuditRepo serves ListAuditEvents.
	AuditRepo auditrepo.Repository
	// AuditSink records authenticated non-login RPCs. If nil, the audit interceptor is not installed.
	AuditSink audit.Sink
	// HealthPinger is used by Health for readiness (e.g. the pgx pool). If nil, Check skips the DB ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by Health for readiness. If nil, Check skips the policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	// DevOTPHandler is the dev-only DevService (GetOTP). If nil, DevService is not registered. Set only when dev OTP is enabled and not production.
	DevOTPHandler devv1.DevServiceServer
	// RateLimitRPS and RateLimitBurst throttle the login RPCs per client IP. RPS <= 0 disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *zap.Logger
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - asset.auth.v1.AuthService   → internal/identity/handler
//   - asset.audit.v1.AuditService → internal/audit/handler
//   - asset.dev.v1.DevService     → internal/devotp/handler (dev only)
//   - grpc.health.v1.Health       → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Identities, deps.OTP, deps.Sessions, deps.Access, deps.Logger))
	auditv1.RegisterAuditServiceServer(s, audithandler.NewServer(deps.AuditRepo, deps.Logger))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, deps.Logger,
		authv1.ServiceName, auditv1.ServiceName))
	if deps.DevOTPHandler != nil {
		devv1.RegisterDevServiceServer(s, deps.DevOTPHandler)
	}
}

// NewGRPCServer returns a server with the interceptor chain installed and all services registered.
// Interceptor order: recover, logging, rate limit, auth, audit.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := []grpc.UnaryServerInterceptor{
		interceptors.RecoverUnary(logger),
		interceptors.LoggingUnary(logger, HealthMethods()),
		interceptors.NewRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst, LoginMethods()).Unary(),
		interceptors.AuthUnary(deps.Sessions, PublicMethods(), logger),
	}
	if deps.AuditSink != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditSink, UnauditedMethods()))
	}
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// LoginMethods are the unauthenticated login RPCs subject to per-IP rate limiting.
func LoginMethods() map[string]bool {
	return map[string]bool{
		authv1.AuthService_Identify_FullMethodName:    true,
		authv1.AuthService_DispatchOtp_FullMethodName: true,
		authv1.AuthService_VerifyOtp_FullMethodName:   true,
	}
}

// HealthMethods are the grpc.health.v1 RPCs.
func HealthMethods() map[string]bool {
	return map[string]bool{
		healthpb.Health_Check_FullMethodName: true,
		healthpb.Health_Watch_FullMethodName: true,
	}
}

// PublicMethods run without a bearer token. The whole AuthService is public: session RPCs carry the
// token in the request, and ResolveAccess answers anonymous callers with the public scope.
func PublicMethods() map[string]bool {
	m := LoginMethods()
	for k := range HealthMethods() {
		m[k] = true
	}
	m[authv1.AuthService_ValidateSession_FullMethodName] = true
	m[authv1.AuthService_RevokeSession_FullMethodName] = true
	m[authv1.AuthService_ResolveAccess_FullMethodName] = true
	m[devv1.DevService_GetOTP_FullMethodName] = true
	return m
}

// UnauditedMethods are skipped by the audit interceptor: login and revoke RPCs audit themselves in their
// services, and validation and health checks run on every request.
func UnauditedMethods() map[string]bool {
	m := LoginMethods()
	for k := range HealthMethods() {
		m[k] = true
	}
	m[authv1.AuthService_ValidateSession_FullMethodName] = true
	m[authv1.AuthService_RevokeSession_FullMethodName] = true
	m[devv1.DevService_GetOTP_FullMethodName] = true
	return m
}
