package interceptors

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/audit"
	"asset-registry/backend/internal/diag"
	sessiondomain "asset-registry/backend/internal/session/domain"
)

// recordingSink implements audit.Sink for interceptor tests.
type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Record(_ context.Context, e audit.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

const listMethod = "/asset.audit.v1.AuditService/ListAuditEvents"

func authed() context.Context {
	return WithPrincipal(context.Background(), &sessiondomain.Principal{SessionID: "session-1", IdentityID: "identity-1"}, "tok")
}

func okHandler(ctx context.Context, req any) (any, error) { return "ok", nil }

func TestAuditUnary_AuthenticatedRequest(t *testing.T) {
	sink := &recordingSink{}
	interceptor := AuditUnary(sink, nil)

	if _, err := interceptor(authed(), nil, &grpc.UnaryServerInfo{FullMethod: listMethod}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(sink.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.Event != "AUDIT_LIST" || e.IdentityID != "identity-1" || !e.Success || e.Code != diag.OK {
		t.Errorf("entry = %+v", e)
	}
}

func TestAuditUnary_SkipsAnonymousAndSkippedMethods(t *testing.T) {
	sink := &recordingSink{}
	interceptor := AuditUnary(sink, map[string]bool{"/test.Service/Skipped": true})

	_, _ = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: listMethod}, okHandler)
	_, _ = interceptor(authed(), nil, &grpc.UnaryServerInfo{FullMethod: "/test.Service/Skipped"}, okHandler)
	if len(sink.entries) != 0 {
		t.Errorf("entries = %+v, want none", sink.entries)
	}
}

func TestAuditUnary_HandlerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want diag.Code
	}{
		{"diagnostic reason", rpc.Error(codes.NotFound, diag.SessionNotFound, "gone"), diag.SessionNotFound},
		{"permission denied", status.Error(codes.PermissionDenied, "no"), diag.PermissionDenied},
		{"plain error", errors.New("boom"), diag.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			interceptor := AuditUnary(sink, nil)
			_, err := interceptor(authed(), nil, &grpc.UnaryServerInfo{FullMethod: listMethod}, func(ctx context.Context, req any) (any, error) {
				return nil, tt.err
			})
			if err != tt.err {
				t.Errorf("err = %v, want handler error passed through", err)
			}
			if len(sink.entries) != 1 {
				t.Fatalf("entries = %d, want 1", len(sink.entries))
			}
			if e := sink.entries[0]; e.Success || e.Code != tt.want {
				t.Errorf("entry = %+v, want failure with %s", e, tt.want)
			}
		})
	}
}

func TestAuditUnary_NilSink(t *testing.T) {
	interceptor := AuditUnary(nil, nil)
	resp, err := interceptor(authed(), nil, &grpc.UnaryServerInfo{FullMethod: listMethod}, okHandler)
	if err != nil || resp != "ok" {
		t.Errorf("resp, err = %v, %v", resp, err)
	}
}

func TestClientIP(t *testing.T) {
	peerCtx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("192.168.1.3"), Port: 12345},
	})
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"x-forwarded-for", incoming(map[string]string{"x-forwarded-for": "192.168.1.1"}), "192.168.1.1"},
		{"x-forwarded-for chain", incoming(map[string]string{"x-forwarded-for": "192.168.1.1, 10.0.0.1"}), "192.168.1.1"},
		{"x-real-ip", incoming(map[string]string{"x-real-ip": "192.168.1.2"}), "192.168.1.2"},
		{"forwarded wins", incoming(map[string]string{"x-forwarded-for": "192.168.1.1", "x-real-ip": "192.168.1.2"}), "192.168.1.1"},
		{"whitespace", incoming(map[string]string{"x-forwarded-for": "  192.168.1.1  "}), "192.168.1.1"},
		{"peer", peerCtx, "192.168.1.3"},
		{"unknown", context.Background(), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientInfo(t *testing.T) {
	ctx := incoming(map[string]string{"x-real-ip": "10.1.1.1", "user-agent": "registry-cli/1.0"})
	ip, ua := ClientInfo(ctx)
	if ip != "10.1.1.1" || ua != "registry-cli/1.0" {
		t.Errorf("ClientInfo = %q, %q", ip, ua)
	}
	if ua := UserAgent(context.Background()); ua != "unknown" {
		t.Errorf("UserAgent = %q, want unknown", ua)
	}
}

func incoming(kv map[string]string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.New(kv))
}
