// Package devv1 defines asset.dev.v1.DevService. It is registered only in development mode, where
// dispatched passcodes are captured instead of sent.
package devv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
)

const ServiceName = "asset.dev.v1.DevService"

var DevService_GetOTP_FullMethodName = rpc.FullMethod(ServiceName, "GetOTP")

type GetOTPRequest struct {
	ChallengeID string `json:"challenge_id"`
}

type GetOTPResponse struct {
	Otp  string `json:"otp"`
	Note string `json:"note"`
}

type DevServiceServer interface {
	GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error)
}

type UnimplementedDevServiceServer struct{}

func (UnimplementedDevServiceServer) GetOTP(context.Context, *GetOTPRequest) (*GetOTPResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOTP not implemented")
}

var DevService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DevServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "GetOTP", DevServiceServer.GetOTP),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "asset/dev/v1/dev.json",
}

func RegisterDevServiceServer(s grpc.ServiceRegistrar, srv DevServiceServer) {
	s.RegisterService(&DevService_ServiceDesc, srv)
}

type DevServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewDevServiceClient(cc grpc.ClientConnInterface) *DevServiceClient {
	return &DevServiceClient{cc: cc}
}

func (c *DevServiceClient) GetOTP(ctx context.Context, in *GetOTPRequest, opts ...grpc.CallOption) (*GetOTPResponse, error) {
	return rpc.Invoke[GetOTPResponse](ctx, c.cc, DevService_GetOTP_FullMethodName, in, opts...)
}
