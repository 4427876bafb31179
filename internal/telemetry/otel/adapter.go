package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "asset-registry/backend/internal/audit/domain"
	"asset-registry/backend/internal/telemetry"
)

// recordEmitter is the part of otellog.Logger the emitter uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends audit events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("asset-registry.audit")}
}

// NewEventEmitterWithLogger returns an emitter writing to logger. Used by tests.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *auditdomain.AuditEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the audit event to an OTel log record. Failed events are logged at WARN, others at INFO.
func (e *otelEmitter) Emit(ctx context.Context, event *auditdomain.AuditEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	rec.SetEventName(event.Event)
	rec.SetBody(otellog.StringValue(event.Event))
	if event.Success {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	} else {
		rec.SetSeverity(otellog.SeverityWarn)
		rec.SetSeverityText("WARN")
	}
	rec.AddAttributes(
		otellog.String("audit.id", event.ID),
		otellog.String("identity_id", event.IdentityID),
		otellog.Bool("success", event.Success),
		otellog.String("diagnostic_code", event.DiagnosticCode),
	)
	if event.Channel != "" {
		rec.AddAttributes(otellog.String("channel", event.Channel))
	}
	if event.IP != "" {
		rec.AddAttributes(otellog.String("client.address", event.IP))
	}
	if event.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent.original", event.UserAgent))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
