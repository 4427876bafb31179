package interceptors

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/diag"
	sessionservice "asset-registry/backend/internal/session/service"
)

const bearerPrefix = "bearer "

// SessionValidator resolves a bearer token to its principal. *sessionservice.Service satisfies it.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (sessionservice.ValidateResult, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer token from gRPC metadata
// and puts the principal in context. Validation goes through the session store, so a valid call also
// slides the session's expiry.
// publicMethods is the set of full method names that run without a token. On those methods a missing
// or invalid token yields an anonymous context instead of an error.
func AuthUnary(sessions SessionValidator, publicMethods map[string]bool, logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, rpc.Error(codes.Unauthenticated, diag.Unauthenticated, "missing or invalid authorization")
		}

		res, err := sessions.Validate(ctx, token)
		if err != nil {
			logger.Error("auth: session validation failed", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, rpc.Error(codes.Internal, diag.Internal, "internal error")
		}
		if !res.Valid {
			if public {
				return handler(ctx, req)
			}
			return nil, rpc.Error(codes.Unauthenticated, diag.SessionInvalid, "session is not valid")
		}

		return handler(WithPrincipal(ctx, res.Principal, token), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
