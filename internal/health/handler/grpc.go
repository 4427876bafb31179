package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 2 * time.Second

// Pinger checks storage reachability. db.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PolicyChecker checks that the access policy evaluates. *access.Controller satisfies it.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness probes. A nil Pinger or PolicyChecker is skipped.
type Server struct {
	healthpb.UnimplementedHealthServer
	pinger   Pinger
	policy   PolicyChecker
	services map[string]struct{}
	logger   *zap.Logger
}

// NewServer returns a health server answering for the empty service name and each name in services.
func NewServer(pinger Pinger, policy PolicyChecker, logger *zap.Logger, services ...string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	known := map[string]struct{}{"": {}}
	for _, s := range services {
		known[s] = struct{}{}
	}
	return &Server{pinger: pinger, policy: policy, services: known, logger: logger}
}

// Check reports SERVING when the database answers a ping and the access policy evaluates.
// Dependency failures are reported as NOT_SERVING, not as gRPC errors.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if _, ok := s.services[req.GetService()]; !ok {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("health: database ping failed", zap.Error(err))
			return notServing(), nil
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			s.logger.Warn("health: access policy check failed", zap.Error(err))
			return notServing(), nil
		}
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}

func notServing() *healthpb.HealthCheckResponse {
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}
}
