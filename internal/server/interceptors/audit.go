package interceptors

import (
	"context"
	"net"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
)

// AuditUnary returns a unary server interceptor that records an audit event after each authenticated RPC.
// skipMethods is the set of full method names to not audit; login RPCs audit themselves in their services.
// Recording is best-effort and never changes the RPC result.
func AuditUnary(sink audit.Sink, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if sink == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		identityID, ok := GetIdentityID(ctx)
		if !ok {
			return resp, err
		}
		sink.Record(ctx, audit.Entry{
			Event:      audit.ParseFullMethod(info.FullMethod).EventName(),
			IdentityID: identityID,
			Success:    err == nil,
			Code:       resultCode(err),
		})
		return resp, err
	}
}

// resultCode is the diagnostic code carried by err, falling back to OK or INTERNAL.
func resultCode(err error) diag.Code {
	if err == nil {
		return diag.OK
	}
	if c := rpc.Reason(err); c != "" {
		return c
	}
	switch status.Code(err) {
	case codes.PermissionDenied:
		return diag.PermissionDenied
	case codes.Unauthenticated:
		return diag.Unauthenticated
	case codes.InvalidArgument:
		return diag.InvalidInput
	}
	return diag.Internal
}

// ClientInfo returns the caller's IP and user agent. It satisfies audit.ClientInfoExtractor.
func ClientInfo(ctx context.Context) (ip, userAgent string) {
	return ClientIP(ctx), UserAgent(ctx)
}

// UserAgent returns the user-agent from gRPC metadata, or "unknown".
func UserAgent(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("user-agent"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	return "unknown"
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
