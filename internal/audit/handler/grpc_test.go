package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditv1 "asset-registry/backend/api/audit/v1"
	"asset-registry/backend/internal/audit/domain"
	auditrepo "asset-registry/backend/internal/audit/repository"
	identitydomain "asset-registry/backend/internal/identity/domain"
	"asset-registry/backend/internal/server/interceptors"
	sessiondomain "asset-registry/backend/internal/session/domain"
)

// mockAuditRepo implements auditrepo.Repository for tests.
type mockAuditRepo struct {
	events     []*domain.AuditEvent
	err        error
	lastFilter auditrepo.Filter
	lastLimit  int32
	lastOffset int32
}

func (m *mockAuditRepo) Create(_ context.Context, e *domain.AuditEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditRepo) ListEvents(_ context.Context, f auditrepo.Filter, limit, offset int32) ([]*domain.AuditEvent, error) {
	m.lastFilter, m.lastLimit, m.lastOffset = f, limit, offset
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.AuditEvent
	for i := int(offset); i < len(m.events) && len(out) < int(limit); i++ {
		out = append(out, m.events[i])
	}
	return out, nil
}

func seeded(n int) *mockAuditRepo {
	repo := &mockAuditRepo{}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		repo.events = append(repo.events, &domain.AuditEvent{
			ID:             fmt.Sprintf("event-%d", i),
			Event:          "OTP_ISSUE_SUCCESS",
			IdentityID:     "identity-1",
			Success:        true,
			DiagnosticCode: "OK",
			CreatedAt:      base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return repo
}

func asRole(role identitydomain.Role) context.Context {
	p := &sessiondomain.Principal{SessionID: "session-1", IdentityID: "identity-admin", Role: role}
	return interceptors.WithPrincipal(context.Background(), p, "tok")
}

func TestListAuditEvents_RequiresAdmin(t *testing.T) {
	srv := NewServer(seeded(1), nil)

	_, err := srv.ListAuditEvents(context.Background(), &auditv1.ListAuditEventsRequest{})
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("anonymous code = %v, want Unauthenticated", status.Code(err))
	}
	for _, role := range []identitydomain.Role{identitydomain.RoleUser, identitydomain.RolePolice, identitydomain.RoleCashier} {
		_, err := srv.ListAuditEvents(asRole(role), &auditv1.ListAuditEventsRequest{})
		if status.Code(err) != codes.PermissionDenied {
			t.Errorf("role %s code = %v, want PermissionDenied", role, status.Code(err))
		}
	}
}

func TestListAuditEvents_Pagination(t *testing.T) {
	repo := seeded(5)
	srv := NewServer(repo, nil)
	ctx := asRole(identitydomain.RoleAdmin)

	resp, err := srv.ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].ID != "event-0" || resp.NextPageToken != "2" {
		t.Fatalf("first page = %d events, token %q", len(resp.Events), resp.NextPageToken)
	}

	resp, err = srv.ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{PageSize: 2, PageToken: "4"})
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].ID != "event-4" || resp.NextPageToken != "" {
		t.Errorf("last page = %+v, token %q", resp.Events, resp.NextPageToken)
	}
}

// fullPageRepo returns a full page at any offset.
type fullPageRepo struct{ mockAuditRepo }

func (m *fullPageRepo) ListEvents(_ context.Context, _ auditrepo.Filter, limit, offset int32) ([]*domain.AuditEvent, error) {
	m.lastLimit, m.lastOffset = limit, offset
	out := make([]*domain.AuditEvent, limit)
	for i := range out {
		out[i] = &domain.AuditEvent{ID: fmt.Sprintf("event-%d", int64(offset)+int64(i))}
	}
	return out, nil
}

func TestListAuditEvents_NextTokenNearInt32Limit(t *testing.T) {
	ctx := asRole(identitydomain.RoleAdmin)
	cases := []struct {
		token string
		want  string
	}{
		{token: "2147483000", want: "2147483100"},
		{token: "2147483547", want: "2147483647"},
		{token: "2147483600", want: ""},
		{token: "2147483647", want: ""},
	}
	for _, tc := range cases {
		repo := &fullPageRepo{}
		resp, err := NewServer(repo, nil).ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{PageSize: 100, PageToken: tc.token})
		if err != nil {
			t.Fatalf("token %s: %v", tc.token, err)
		}
		if resp.NextPageToken != tc.want {
			t.Errorf("token %s: next = %q, want %q", tc.token, resp.NextPageToken, tc.want)
		}
	}
}

func TestListAuditEvents_PageSizeBounds(t *testing.T) {
	repo := seeded(0)
	srv := NewServer(repo, nil)
	ctx := asRole(identitydomain.RoleAdmin)

	if _, err := srv.ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{}); err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if repo.lastLimit != defaultPageSize {
		t.Errorf("default limit = %d, want %d", repo.lastLimit, defaultPageSize)
	}
	if _, err := srv.ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{PageSize: 1000}); err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if repo.lastLimit != maxPageSize {
		t.Errorf("capped limit = %d, want %d", repo.lastLimit, maxPageSize)
	}
}

func TestListAuditEvents_FilterPassedThrough(t *testing.T) {
	repo := seeded(0)
	srv := NewServer(repo, nil)

	_, err := srv.ListAuditEvents(asRole(identitydomain.RoleAdmin), &auditv1.ListAuditEventsRequest{Event: "OTP_VERIFY_FAILURE", IdentityID: "identity-9"})
	if err != nil {
		t.Fatalf("ListAuditEvents: %v", err)
	}
	if repo.lastFilter.Event != "OTP_VERIFY_FAILURE" || repo.lastFilter.IdentityID != "identity-9" {
		t.Errorf("filter = %+v", repo.lastFilter)
	}
}

func TestListAuditEvents_Errors(t *testing.T) {
	ctx := asRole(identitydomain.RoleAdmin)

	_, err := NewServer(seeded(0), nil).ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{PageToken: "abc"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad token code = %v, want InvalidArgument", status.Code(err))
	}
	_, err = NewServer(&mockAuditRepo{err: errors.New("db down")}, nil).ListAuditEvents(ctx, &auditv1.ListAuditEventsRequest{})
	if status.Code(err) != codes.Internal {
		t.Errorf("repo failure code = %v, want Internal", status.Code(err))
	}
}
