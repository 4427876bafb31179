package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	auditdomain "asset-registry/backend/internal/audit/domain"
)

// mockEventEmitter implements EventEmitter for tests.
type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*auditdomain.AuditEvent
	emitErr error
	delay   time.Duration
	ctxErrs []error
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *auditdomain.AuditEvent) error {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*auditdomain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*auditdomain.AuditEvent(nil), m.events...)
}

func waitFor(t *testing.T, a *AsyncEmitter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestAsyncEmitter_NilSafe(t *testing.T) {
	var a *AsyncEmitter
	if err := a.Emit(context.Background(), &auditdomain.AuditEvent{Event: "x"}); err != nil {
		t.Fatalf("nil emitter: %v", err)
	}
	a = NewAsyncEmitter(nil, nil)
	if err := a.Emit(context.Background(), &auditdomain.AuditEvent{Event: "x"}); err != nil {
		t.Fatalf("nil next: %v", err)
	}
	m := &mockEventEmitter{}
	a = NewAsyncEmitter(m, nil)
	_ = a.Emit(context.Background(), nil)
	waitFor(t, a)
	if n := len(m.getEvents()); n != 0 {
		t.Errorf("expected 0 events, got %d", n)
	}
}

func TestAsyncEmitter_EmitsCopy(t *testing.T) {
	m := &mockEventEmitter{}
	a := NewAsyncEmitter(m, nil)
	ev := &auditdomain.AuditEvent{ID: "e-1", Event: "OTP_ISSUE_SUCCESS", IdentityID: "id-1"}
	if err := a.Emit(context.Background(), ev); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	ev.Event = "MUTATED"
	waitFor(t, a)

	events := m.getEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Event != "OTP_ISSUE_SUCCESS" || events[0].IdentityID != "id-1" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestAsyncEmitter_IgnoresRequestCancellation(t *testing.T) {
	m := &mockEventEmitter{}
	a := NewAsyncEmitter(m, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = a.Emit(ctx, &auditdomain.AuditEvent{Event: "x"})
	waitFor(t, a)

	if n := len(m.getEvents()); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if m.ctxErrs[0] != nil {
		t.Errorf("emit context already done: %v", m.ctxErrs[0])
	}
}

func TestAsyncEmitter_TimeoutAndErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := &mockEventEmitter{delay: time.Second}
	a := NewAsyncEmitter(m, zap.New(core))
	a.timeout = 20 * time.Millisecond

	_ = a.Emit(context.Background(), &auditdomain.AuditEvent{Event: "slow"})
	waitFor(t, a)
	if n := logs.FilterMessage("telemetry: async emit failed").Len(); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}

	m2 := &mockEventEmitter{emitErr: errors.New("broker down")}
	a2 := NewAsyncEmitter(m2, zap.New(core))
	_ = a2.Emit(context.Background(), &auditdomain.AuditEvent{Event: "x"})
	waitFor(t, a2)
	if n := logs.FilterMessage("telemetry: async emit failed").Len(); n != 2 {
		t.Fatalf("expected 2 warnings, got %d", n)
	}
}

func TestAsyncEmitter_Concurrent(t *testing.T) {
	m := &mockEventEmitter{}
	a := NewAsyncEmitter(m, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Emit(context.Background(), &auditdomain.AuditEvent{Event: "x"})
		}()
	}
	wg.Wait()
	waitFor(t, a)

	if n := len(m.getEvents()); n != 10 {
		t.Errorf("expected 10 events, got %d", n)
	}
}

func TestShutdownDrainDuration(t *testing.T) {
	if ShutdownDrainDuration < emitTimeout {
		t.Errorf("ShutdownDrainDuration %v < emitTimeout %v", ShutdownDrainDuration, emitTimeout)
	}
}
