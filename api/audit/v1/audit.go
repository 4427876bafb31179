// Package auditv1 defines asset.audit.v1.AuditService: read access to the security audit trail.
package auditv1

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"asset-registry/backend/api/rpc"
)

const ServiceName = "asset.audit.v1.AuditService"

var AuditService_ListAuditEvents_FullMethodName = rpc.FullMethod(ServiceName, "ListAuditEvents")

type AuditEvent struct {
	ID             string    `json:"id"`
	Event          string    `json:"event"`
	IdentityID     string    `json:"identity_id"`
	Channel        string    `json:"channel,omitempty"`
	Success        bool      `json:"success"`
	DiagnosticCode string    `json:"diagnostic_code"`
	IP             string    `json:"ip"`
	UserAgent      string    `json:"user_agent"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListAuditEventsRequest filters by exact event name and identity id; empty fields match all.
type ListAuditEventsRequest struct {
	Event      string `json:"event,omitempty"`
	IdentityID string `json:"identity_id,omitempty"`
	PageSize   int32  `json:"page_size,omitempty"`
	PageToken  string `json:"page_token,omitempty"`
}

type ListAuditEventsResponse struct {
	Events        []*AuditEvent `json:"events"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type AuditServiceServer interface {
	ListAuditEvents(context.Context, *ListAuditEventsRequest) (*ListAuditEventsResponse, error)
}

type UnimplementedAuditServiceServer struct{}

func (UnimplementedAuditServiceServer) ListAuditEvents(context.Context, *ListAuditEventsRequest) (*ListAuditEventsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAuditEvents not implemented")
}

var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		rpc.Unary(ServiceName, "ListAuditEvents", AuditServiceServer.ListAuditEvents),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "asset/audit/v1/audit.json",
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}

type AuditServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAuditServiceClient(cc grpc.ClientConnInterface) *AuditServiceClient {
	return &AuditServiceClient{cc: cc}
}

func (c *AuditServiceClient) ListAuditEvents(ctx context.Context, in *ListAuditEventsRequest, opts ...grpc.CallOption) (*ListAuditEventsResponse, error) {
	return rpc.Invoke[ListAuditEventsResponse](ctx, c.cc, AuditService_ListAuditEvents_FullMethodName, in, opts...)
}
