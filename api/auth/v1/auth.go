// Package authv1 defines asset.auth.v1.AuthService: OTP login, session validation and revocation,
// and access-predicate resolution. Messages are JSON-encoded (see api/rpc).
package authv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
)

// ServiceName is the fully qualified service name.
const ServiceName = "asset.auth.v1.AuthService"

// Full method names, for interceptor configuration.
var (
	AuthService_Identify_FullMethodName        = rpc.FullMethod(ServiceName, "Identify")
	AuthService_DispatchOtp_FullMethodName     = rpc.FullMethod(ServiceName, "DispatchOtp")
	AuthService_VerifyOtp_FullMethodName       = rpc.FullMethod(ServiceName, "VerifyOtp")
	AuthService_ValidateSession_FullMethodName = rpc.FullMethod(ServiceName, "ValidateSession")
	AuthService_RevokeSession_FullMethodName   = rpc.FullMethod(ServiceName, "RevokeSession")
	AuthService_ResolveAccess_FullMethodName   = rpc.FullMethod(ServiceName, "ResolveAccess")
)

type IdentifyRequest struct {
	LastName string `json:"last_name"`
	IDNumber string `json:"id_number"`
}

type IdentifyResponse struct {
	IdentityID  string   `json:"identity_id"`
	Channels    []string `json:"channels"`
	MaskedPhone string   `json:"masked_phone,omitempty"`
	MaskedEmail string   `json:"masked_email,omitempty"`
}

type DispatchOtpRequest struct {
	IdentityID string `json:"identity_id"`
	Channel    string `json:"channel"`
}

type DispatchOtpResponse struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type VerifyOtpRequest struct {
	IdentityID string `json:"identity_id"`
	Code       string `json:"code"`
}

// VerifyOtpResponse carries every verification outcome. Token, SessionID, Role and ExpiresAt are set
// only when Status is AUTHENTICATED.
type VerifyOtpResponse struct {
	Status            string     `json:"status"`
	AttemptsRemaining int32      `json:"attempts_remaining"`
	Token             string     `json:"token,omitempty"`
	SessionID         string     `json:"session_id,omitempty"`
	Role              string     `json:"role,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Diagnostic        string     `json:"diagnostic"`
}

type ValidateSessionRequest struct {
	Token string `json:"token"`
}

type ValidateSessionResponse struct {
	IdentityID string    `json:"identity_id"`
	Role       string    `json:"role"`
	SessionID  string    `json:"session_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	Extended   bool      `json:"extended"`
}

type RevokeSessionRequest struct {
	Token string `json:"token"`
}

type RevokeSessionResponse struct {
	Result string `json:"result"`
}

// ResolveAccessRequest is answered for the caller named by the bearer token in metadata, or for an
// anonymous caller when there is none.
type ResolveAccessRequest struct {
	IncludeDeleted bool  `json:"include_deleted,omitempty"`
	ArgOffset      int32 `json:"arg_offset,omitempty"`
}

type ResolveAccessResponse struct {
	Kind       string   `json:"kind"`
	IdentityID string   `json:"identity_id,omitempty"`
	Station    string   `json:"station,omitempty"`
	Where      string   `json:"where"`
	Args       []string `json:"args"`
}

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Identify(context.Context, *IdentifyRequest) (*IdentifyResponse, error)
	DispatchOtp(context.Context, *DispatchOtpRequest) (*DispatchOtpResponse, error)
	VerifyOtp(context.Context, *VerifyOtpRequest) (*VerifyOtpResponse, error)
	ValidateSession(context.Context, *ValidateSessionRequest) (*ValidateSessionResponse, error)
	RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error)
	ResolveAccess(context.Context, *ResolveAccessRequest) (*ResolveAccessResponse, error)
}

// UnimplementedAuthServiceServer returns Unimplemented for every method. Embed it for forward compatibility.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Identify(context.Context, *IdentifyRequest) (*IdentifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Identify not implemented")
}
func (UnimplementedAuthServiceServer) DispatchOtp(context.Context, *DispatchOtpRequest) (*DispatchOtpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DispatchOtp not implemented")
}
func (UnimplementedAuthServiceServer) VerifyOtp(context.Context, *VerifyOtpRequest) (*VerifyOtpResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method VerifyOtp not implemented")
}
func (UnimplementedAuthServiceServer) ValidateSession(context.Context, *ValidateSessionRequest) (*ValidateSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ValidateSession not implemented")
}
func (UnimplementedAuthServiceServer) RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
}
func (UnimplementedAuthServiceServer) ResolveAccess(context.Context, *ResolveAccessRequest) (*ResolveAccessResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResolveAccess not implemented")
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "Identify", AuthServiceServer.Identify),
		rpc.Unary(ServiceName, "DispatchOtp", AuthServiceServer.DispatchOtp),
		rpc.Unary(ServiceName, "VerifyOtp", AuthServiceServer.VerifyOtp),
		rpc.Unary(ServiceName, "ValidateSession", AuthServiceServer.ValidateSession),
		rpc.Unary(ServiceName, "RevokeSession", AuthServiceServer.RevokeSession),
		rpc.Unary(ServiceName, "ResolveAccess", AuthServiceServer.ResolveAccess),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "asset/auth/v1/auth.json",
}

// RegisterAuthServiceServer registers srv with s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client over cc.
func NewAuthServiceClient(cc grpc.ClientConnInterface) *AuthServiceClient {
	return &AuthServiceClient{cc: cc}
}

func (c *AuthServiceClient) Identify(ctx context.Context, in *IdentifyRequest, opts ...grpc.CallOption) (*IdentifyResponse, error) {
	return rpc.Invoke[IdentifyResponse](ctx, c.cc, AuthService_Identify_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) DispatchOtp(ctx context.Context, in *DispatchOtpRequest, opts ...grpc.CallOption) (*DispatchOtpResponse, error) {
	return rpc.Invoke[DispatchOtpResponse](ctx, c.cc, AuthService_DispatchOtp_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) VerifyOtp(ctx context.Context, in *VerifyOtpRequest, opts ...grpc.CallOption) (*VerifyOtpResponse, error) {
	return rpc.Invoke[VerifyOtpResponse](ctx, c.cc, AuthService_VerifyOtp_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) ValidateSession(ctx context.Context, in *ValidateSessionRequest, opts ...grpc.CallOption) (*ValidateSessionResponse, error) {
	return rpc.Invoke[ValidateSessionResponse](ctx, c.cc, AuthService_ValidateSession_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) RevokeSession(ctx context.Context, in *RevokeSessionRequest, opts ...grpc.CallOption) (*RevokeSessionResponse, error) {
	return rpc.Invoke[RevokeSessionResponse](ctx, c.cc, AuthService_RevokeSession_FullMethodName, in, opts...)
}

func (c *AuthServiceClient) ResolveAccess(ctx context.Context, in *ResolveAccessRequest, opts ...grpc.CallOption) (*ResolveAccessResponse, error) {
	return rpc.Invoke[ResolveAccessResponse](ctx, c.cc, AuthService_ResolveAccess_FullMethodName, in, opts...)
}
