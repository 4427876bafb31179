// Package producer fans audit events out to a message broker (Kafka).
package producer

import (
	"context"

	auditdomain "asset-registry/backend/internal/audit/domain"
)

// Producer emits audit events. Callers use it best-effort: log and ignore errors.
// It satisfies telemetry.EventEmitter.
type Producer interface {
	// Emit sends a single audit event. Implementations may block briefly; wrap in telemetry.AsyncEmitter if needed.
	Emit(ctx context.Context, event *auditdomain.AuditEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
