package interceptors

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/diag"
)

func TestLoggingUnary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	interceptor := LoggingUnary(zap.New(core), map[string]bool{"/grpc.health.v1.Health/Check": true})

	_, _ = interceptor(authed(), nil, &grpc.UnaryServerInfo{FullMethod: listMethod}, okHandler)
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod}, func(ctx context.Context, req any) (any, error) {
		return nil, rpc.Error(codes.Internal, diag.Internal, "internal error")
	})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	first := entries[0].ContextMap()
	if first["method"] != listMethod || first["code"] != "OK" || first["identity_id"] != "identity-1" {
		t.Errorf("first entry fields = %v", first)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("internal error logged at %v, want error", entries[1].Level)
	}
	if entries[1].ContextMap()["diagnostic_code"] != "INTERNAL" {
		t.Errorf("second entry fields = %v", entries[1].ContextMap())
	}
}

func TestRecoverUnary(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	interceptor := RecoverUnary(zap.New(core))

	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: protectedMethod}, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("code = %v, want Internal", status.Code(err))
	}
	if logs.FilterMessage("panic").Len() != 1 {
		t.Errorf("panic not logged: %v", logs.All())
	}
}
