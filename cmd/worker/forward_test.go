package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"asset-registry/backend/internal/telemetry/loki"
)

// fakeSource hands out msgs in order, then cancels the run and blocks until ctx is done.
type fakeSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (s *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if len(s.msgs) == 0 {
		s.mu.Unlock()
		s.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := s.msgs[0]
	s.msgs = s.msgs[1:]
	s.mu.Unlock()
	return m, nil
}

func (s *fakeSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	return nil
}

// fakeSink fails with errs in turn, then accepts.
type fakeSink struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	pushed []string
	onCall func(n int)
}

func (s *fakeSink) PushAuditJSON(_ context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.onCall != nil {
		s.onCall(s.calls)
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return err
	}
	s.pushed = append(s.pushed, string(raw))
	return nil
}

func newTestForwarder(t *testing.T, src *fakeSource, dst *fakeSink) (*forwarder, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	src.cancel = cancel
	f := newForwarder(src, dst, zaptest.NewLogger(t))
	f.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return f, ctx
}

func TestForwarder_RetriesUntilLokiAcceptsThenCommits(t *testing.T) {
	down := errors.New("connection refused")
	src := &fakeSource{msgs: []kafka.Message{{Offset: 7, Value: []byte(`{"event":"a"}`)}, {Offset: 8, Value: []byte(`{"event":"b"}`)}}}
	dst := &fakeSink{errs: []error{down, down, &loki.StatusError{Code: http.StatusServiceUnavailable, Status: "503"}}}
	f, ctx := newTestForwarder(t, src, dst)

	require.NoError(t, f.run(ctx))
	assert.Equal(t, []string{`{"event":"a"}`, `{"event":"b"}`}, dst.pushed)
	assert.Equal(t, 5, dst.calls)
	assert.Equal(t, []int64{7, 8}, src.committed)
}

func TestForwarder_OutageLeavesOffsetUncommitted(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{{Offset: 3, Value: []byte(`{}`)}}}
	dst := &fakeSink{}
	f, ctx := newTestForwarder(t, src, dst)
	for i := 0; i < 100; i++ {
		dst.errs = append(dst.errs, errors.New("connection refused"))
	}
	// Shut down while Loki is still unreachable.
	dst.onCall = func(n int) {
		if n == 4 {
			src.cancel()
		}
	}

	require.NoError(t, f.run(ctx))
	assert.Empty(t, dst.pushed)
	assert.Empty(t, src.committed)
}

func TestForwarder_RejectedEventIsSkipped(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{{Offset: 1, Value: []byte("bad")}, {Offset: 2, Value: []byte(`{}`)}}}
	dst := &fakeSink{errs: []error{&loki.StatusError{Code: http.StatusBadRequest, Status: "400 Bad Request"}}}
	f, ctx := newTestForwarder(t, src, dst)

	require.NoError(t, f.run(ctx))
	assert.Equal(t, 2, dst.calls)
	assert.Equal(t, []string{`{}`}, dst.pushed)
	assert.Equal(t, []int64{1, 2}, src.committed)
}
