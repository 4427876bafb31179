package audit

import "testing"

func TestParseFullMethod(t *testing.T) {
	tests := []struct {
		fullMethod   string
		wantAction   string
		wantResource string
		wantEvent    string
	}{
		{"/asset.audit.v1.AuditService/ListAuditEvents", "list", "audit", "AUDIT_LIST"},
		{"/asset.auth.v1.AuthService/ResolveAccess", "resolve", "auth", "AUTH_RESOLVE"},
		{"/asset.auth.v1.AuthService/ValidateSession", "validate", "auth", "AUTH_VALIDATE"},
		{"/asset.dev.v1.DevService/GetOTP", "get", "dev", "DEV_GET"},
		{"/asset.auth.v1.AuthService/Identify", "identify", "auth", "AUTH_IDENTIFY"},
		{"/asset.auth.v1.AuthService/Get", "get", "auth", "AUTH_GET"},
		{"/pkg.Service/Ping", "ping", "unknown", "UNKNOWN_PING"},
		{"/NoDot/Ping", "ping", "unknown", "UNKNOWN_PING"},
		{"garbage", "unknown", "unknown", "UNKNOWN_UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.fullMethod, func(t *testing.T) {
			ar := ParseFullMethod(tt.fullMethod)
			if ar.Action != tt.wantAction {
				t.Errorf("action = %q, want %q", ar.Action, tt.wantAction)
			}
			if ar.Resource != tt.wantResource {
				t.Errorf("resource = %q, want %q", ar.Resource, tt.wantResource)
			}
			if got := ar.EventName(); got != tt.wantEvent {
				t.Errorf("EventName = %q, want %q", got, tt.wantEvent)
			}
		})
	}
}
