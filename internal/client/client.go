// Package client is the typed gRPC client for the registry auth core and the session context that
// carries a caller's bearer token across calls.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "asset-registry/backend/api/audit/v1"
	authv1 "asset-registry/backend/api/auth/v1"
	devv1 "asset-registry/backend/api/dev/v1"
)

// Client bundles the service clients over one connection.
type Client struct {
	Auth  *authv1.AuthServiceClient
	Audit *auditv1.AuditServiceClient
	Dev   *devv1.DevServiceClient
	conn  *grpc.ClientConn
}

// New returns a Client over an existing connection. Close is a no-op for it.
func New(cc grpc.ClientConnInterface) *Client {
	return &Client{
		Auth:  authv1.NewAuthServiceClient(cc),
		Audit: auditv1.NewAuditServiceClient(cc),
		Dev:   devv1.NewDevServiceClient(cc),
	}
}

// Dial connects to target. Pass transport credentials in opts.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	c := New(conn)
	c.conn = conn
	return c, nil
}

// Close closes a connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// ErrNotAuthenticated is returned by SessionContext.Close when there is no session to end.
var ErrNotAuthenticated = errors.New("client: no active session")

// SessionContext owns one caller's session: Init loads and validates a saved token once, Login stores a
// fresh one, and Close revokes and forgets it. It implements credentials.PerRPCCredentials, so passing
// grpc.PerRPCCredentials(sc) on a call attaches the bearer token when there is one.
type SessionContext struct {
	auth       *authv1.AuthServiceClient
	store      TokenStore
	requireTLS bool

	mu        sync.RWMutex
	token     string
	principal *authv1.ValidateSessionResponse
}

// NewSessionContext returns an uninitialized session context. requireTLS is reported to gRPC for the
// per-RPC credentials.
func NewSessionContext(auth *authv1.AuthServiceClient, store TokenStore, requireTLS bool) *SessionContext {
	if store == nil {
		store = &MemoryTokenStore{}
	}
	return &SessionContext{auth: auth, store: store, requireTLS: requireTLS}
}

// Init loads the saved token and validates it once. A missing, expired or rejected token leaves the
// context anonymous and clears the store; only transport or server faults are returned.
func (s *SessionContext) Init(ctx context.Context) error {
	t, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if t.AccessToken == "" {
		s.reset()
		return nil
	}
	resp, err := s.auth.ValidateSession(ctx, &authv1.ValidateSessionRequest{Token: t.AccessToken})
	if status.Code(err) == codes.Unauthenticated {
		s.reset()
		return s.store.Clear()
	}
	if err != nil {
		return fmt.Errorf("validate session: %w", err)
	}
	s.set(t.AccessToken, resp)
	if resp.Extended {
		return s.store.Save(StoredToken{AccessToken: t.AccessToken, ExpiresAt: resp.ExpiresAt})
	}
	return nil
}

// Login verifies code and, on AUTHENTICATED, adopts and saves the new session. Other statuses are
// returned unchanged and leave the context as it was.
func (s *SessionContext) Login(ctx context.Context, identityID, code string) (*authv1.VerifyOtpResponse, error) {
	resp, err := s.auth.VerifyOtp(ctx, &authv1.VerifyOtpRequest{IdentityID: identityID, Code: code})
	if err != nil {
		return nil, err
	}
	if resp.Status != "AUTHENTICATED" || resp.Token == "" {
		return resp, nil
	}
	var exp time.Time
	if resp.ExpiresAt != nil {
		exp = *resp.ExpiresAt
	}
	s.set(resp.Token, &authv1.ValidateSessionResponse{
		IdentityID: identityID,
		SessionID:  resp.SessionID,
		Role:       resp.Role,
		ExpiresAt:  exp,
	})
	if err := s.store.Save(StoredToken{AccessToken: resp.Token, ExpiresAt: exp}); err != nil {
		return resp, fmt.Errorf("save token: %w", err)
	}
	return resp, nil
}

// Close revokes the session and clears the token. A session the server already considers revoked,
// expired or unknown is still cleared locally.
func (s *SessionContext) Close(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	_, err := s.auth.RevokeSession(ctx, &authv1.RevokeSessionRequest{Token: token})
	switch status.Code(err) {
	case codes.OK, codes.FailedPrecondition, codes.NotFound:
		err = nil
	}
	s.reset()
	if clearErr := s.store.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Authenticated reports whether the context holds a validated session.
func (s *SessionContext) Authenticated() bool {
	return s.Token() != ""
}

// Token returns the bearer token, or "".
func (s *SessionContext) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Principal returns what the server last reported about the session, or nil when anonymous.
func (s *SessionContext) Principal() *authv1.ValidateSessionResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.principal
}

// GetRequestMetadata implements credentials.PerRPCCredentials.
func (s *SessionContext) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	token := s.Token()
	if token == "" {
		return map[string]string{}, nil
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
func (s *SessionContext) RequireTransportSecurity() bool { return s.requireTLS }

func (s *SessionContext) set(token string, p *authv1.ValidateSessionResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.principal = token, p
}

func (s *SessionContext) reset() {
	s.set("", nil)
}
