package interceptors

import (
	"context"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/diag"
)

// LoggingUnary returns a unary server interceptor that logs one line per RPC and records its
// duration in the rpc.server.handled histogram. Payloads are never logged.
// skipMethods is the set of full method names to not log (e.g. health checks).
func LoggingUnary(logger *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	hist, err := otel.Meter("asset-registry/grpc").Float64Histogram("rpc.server.handled",
		metric.WithDescription("Handled RPC duration by method and code."), metric.WithUnit("ms"))
	if err != nil {
		logger.Warn("telemetry: rpc histogram unavailable", zap.Error(err))
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		dur := time.Since(start)
		code := status.Code(err)
		if hist != nil {
			hist.Record(ctx, float64(dur.Microseconds())/1000, metric.WithAttributes(
				attribute.String("rpc.method", info.FullMethod),
				attribute.String("rpc.grpc.status_code", code.String()),
			))
		}
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("dur", dur),
			zap.String("client_ip", ClientIP(ctx)),
		}
		if id, ok := GetIdentityID(ctx); ok {
			fields = append(fields, zap.String("identity_id", id))
		}
		if reason := rpc.Reason(err); reason != "" {
			fields = append(fields, zap.String("diagnostic_code", reason.String()))
		}
		if code == codes.Internal || code == codes.Unknown {
			logger.Error("grpc", fields...)
		} else {
			logger.Info("grpc", fields...)
		}
		return resp, err
	}
}

// RecoverUnary returns a unary server interceptor that turns a handler panic into codes.Internal.
func RecoverUnary(logger *zap.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("method", info.FullMethod),
				)
				err = rpc.Error(codes.Internal, diag.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
