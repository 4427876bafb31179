// Package telemetry defines sinks that receive audit events in addition to the audit table.
package telemetry

import (
	"context"

	auditdomain "asset-registry/backend/internal/audit/domain"
)

// EventEmitter forwards audit events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *auditdomain.AuditEvent) error
}
