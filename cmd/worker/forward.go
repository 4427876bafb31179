package main

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"asset-registry/backend/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

// source is the consumer-group half of kafka.Reader the forwarder needs.
type source interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// sink receives one audit event per message.
type sink interface {
	PushAuditJSON(ctx context.Context, raw []byte) error
}

// forwarder moves audit events from Kafka to Loki. A message is committed only after Loki accepted it
// or rejected it outright; transport failures and temporary statuses are retried until ctx is done, so
// an outage leaves the offset where it was.
type forwarder struct {
	src        source
	dst        sink
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

func newForwarder(src source, dst sink, logger *zap.Logger) *forwarder {
	return &forwarder{
		src:    src,
		dst:    dst,
		logger: logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// run forwards until ctx is done or the reader is closed. It returns nil on shutdown.
func (f *forwarder) run(ctx context.Context) error {
	for {
		msg, err := f.src.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return err
			}
			f.logger.Warn("worker: kafka fetch", zap.Error(err))
			continue
		}
		if err := f.push(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := f.src.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warn("worker: kafka commit", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (f *forwarder) push(ctx context.Context, msg kafka.Message) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		defer cancel()
		err := f.dst.PushAuditJSON(pushCtx, msg.Value)
		var se *loki.StatusError
		if errors.As(err, &se) && !se.Temporary() {
			f.logger.Error("worker: loki rejected event, skipping",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Error(err),
			)
			return struct{}{}, nil
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(f.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			f.logger.Warn("worker: loki push, retrying",
				zap.Int64("offset", msg.Offset),
				zap.Int("partition", msg.Partition),
				zap.Duration("retry_in", next),
				zap.Error(err),
			)
		}),
	)
	return err
}
