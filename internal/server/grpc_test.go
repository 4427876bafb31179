package server

import (
	"sort"
	"testing"

	"google.golang.org/grpc"

	authv1 "asset-registry/backend/api/auth/v1"
	devv1 "asset-registry/backend/api/dev/v1"
)

// mockServiceRegistrar implements grpc.ServiceRegistrar for testing.
type mockServiceRegistrar struct {
	services []string
}

func (m *mockServiceRegistrar) RegisterService(desc *grpc.ServiceDesc, impl any) {
	m.services = append(m.services, desc.ServiceName)
}

type mockDevService struct {
	devv1.UnimplementedDevServiceServer
}

func TestRegisterServices(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
		want []string
	}{
		{
			name: "without dev service",
			deps: Deps{},
			want: []string{"asset.audit.v1.AuditService", "asset.auth.v1.AuthService", "grpc.health.v1.Health"},
		},
		{
			name: "with dev service",
			deps: Deps{DevOTPHandler: &mockDevService{}},
			want: []string{"asset.audit.v1.AuditService", "asset.auth.v1.AuthService", "asset.dev.v1.DevService", "grpc.health.v1.Health"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &mockServiceRegistrar{}
			RegisterServices(reg, tt.deps)
			sort.Strings(reg.services)
			if len(reg.services) != len(tt.want) {
				t.Fatalf("services = %v, want %v", reg.services, tt.want)
			}
			for i := range tt.want {
				if reg.services[i] != tt.want[i] {
					t.Errorf("services[%d] = %q, want %q", i, reg.services[i], tt.want[i])
				}
			}
		})
	}
}

func TestMethodSets(t *testing.T) {
	public := PublicMethods()
	for _, m := range []string{
		authv1.AuthService_Identify_FullMethodName,
		authv1.AuthService_VerifyOtp_FullMethodName,
		authv1.AuthService_ResolveAccess_FullMethodName,
		devv1.DevService_GetOTP_FullMethodName,
	} {
		if !public[m] {
			t.Errorf("%s should be public", m)
		}
	}
	if public["/asset.audit.v1.AuditService/ListAuditEvents"] {
		t.Error("ListAuditEvents must require authentication")
	}

	login := LoginMethods()
	if len(login) != 3 || login[authv1.AuthService_ValidateSession_FullMethodName] {
		t.Errorf("LoginMethods = %v", login)
	}

	unaudited := UnauditedMethods()
	if unaudited[authv1.AuthService_ResolveAccess_FullMethodName] {
		t.Error("ResolveAccess by an authenticated caller should be audited")
	}
	if !unaudited[authv1.AuthService_VerifyOtp_FullMethodName] {
		t.Error("VerifyOtp audits itself and should be skipped")
	}
}
