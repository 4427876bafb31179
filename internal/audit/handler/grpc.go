package handler

import (
	"context"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	auditv1 "asset-registry/backend/api/audit/v1"
	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/audit/domain"
	auditrepo "asset-registry/backend/internal/audit/repository"
	"asset-registry/backend/internal/diag"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/platform/rbac"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Server implements asset.audit.v1.AuditService over the audit repository.
type Server struct {
	auditv1.UnimplementedAuditServiceServer
	repo   auditrepo.Repository
	logger *zap.Logger
}

// NewServer returns a new Audit gRPC server. logger may be nil.
func NewServer(repo auditrepo.Repository, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{repo: repo, logger: logger}
}

// ListAuditEvents returns audit events newest first. Caller must be an admin.
// The page token is the offset of the next page. No token is returned once the offset would leave the
// int32 range.
func (s *Server) ListAuditEvents(ctx context.Context, req *auditv1.ListAuditEventsRequest) (*auditv1.ListAuditEventsResponse, error) {
	if _, err := rbac.RequireRole(ctx, identitydomain.RoleAdmin); err != nil {
		return nil, err
	}
	pageSize := int32(defaultPageSize)
	if ps := req.PageSize; ps > 0 {
		pageSize = ps
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := int32(0)
	if tok := req.PageToken; tok != "" {
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil || n < 0 {
			return nil, rpc.Error(codes.InvalidArgument, diag.InvalidInput, "invalid page_token")
		}
		offset = int32(n)
	}
	list, err := s.repo.ListEvents(ctx, auditrepo.Filter{Event: req.Event, IdentityID: req.IdentityID}, pageSize, offset)
	if err != nil {
		s.logger.Error("audit: list events failed", zap.Error(err))
		return nil, rpc.Error(codes.Internal, diag.Internal, "failed to list audit events")
	}
	events := make([]*auditv1.AuditEvent, len(list))
	for i := range list {
		events[i] = eventToAPI(list[i])
	}
	nextToken := ""
	if next := int64(offset) + int64(pageSize); len(list) == int(pageSize) && next <= math.MaxInt32 {
		nextToken = strconv.FormatInt(next, 10)
	}
	return &auditv1.ListAuditEventsResponse{Events: events, NextPageToken: nextToken}, nil
}

func eventToAPI(e *domain.AuditEvent) *auditv1.AuditEvent {
	return &auditv1.AuditEvent{
		ID:             e.ID,
		Event:          e.Event,
		IdentityID:     e.IdentityID,
		Channel:        e.Channel,
		Success:        e.Success,
		DiagnosticCode: e.DiagnosticCode,
		IP:             e.IP,
		UserAgent:      e.UserAgent,
		CreatedAt:      e.CreatedAt,
	}
}
