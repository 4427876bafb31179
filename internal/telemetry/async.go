package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	auditdomain "asset-registry/backend/internal/audit/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by AsyncEmitter and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration bounds AsyncEmitter.Wait at shutdown, after the gRPC server has stopped and
// before the emitter's producer is closed. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// AsyncEmitter wraps an EventEmitter so Emit returns immediately and the wrapped emit runs in a goroutine.
// Use it for sinks that may be slow (Kafka) so a login is never held up by telemetry.
type AsyncEmitter struct {
	next    EventEmitter
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAsyncEmitter returns an AsyncEmitter around next. logger may be nil.
func NewAsyncEmitter(next EventEmitter, logger *zap.Logger) *AsyncEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncEmitter{next: next, logger: logger, timeout: emitTimeout}
}

// Emit starts the wrapped emit and returns nil. The goroutine keeps the request's values but not its
// cancellation, so a finished RPC does not abort an in-flight emit.
func (a *AsyncEmitter) Emit(ctx context.Context, event *auditdomain.AuditEvent) error {
	if a == nil || a.next == nil || event == nil {
		return nil
	}
	ev := *event
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()
		if err := a.next.Emit(emitCtx, &ev); err != nil {
			a.logger.Warn("telemetry: async emit failed", zap.String("event", ev.Event), zap.Error(err))
		}
	}()
	return nil
}

// Wait blocks until in-flight emits finish or ctx is done.
func (a *AsyncEmitter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
