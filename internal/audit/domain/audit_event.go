package domain

import "time"

// AuditEvent is one append-only security event.
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
