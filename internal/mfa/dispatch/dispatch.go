// Package dispatch routes a one-time passcode to the sender for its delivery channel.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	identitydomain "asset-registry/backend/internal/identity/domain"
)

// ErrNoSender is returned when no sender is configured for the requested channel.
var ErrNoSender = errors.New("dispatch: no sender for channel")

// Message is one passcode delivery. Code is plaintext and must never be logged.
type Message struct {
	ChallengeID string
	Channel     identitydomain.Channel
	To          string
	Code        string
	ExpiresAt   time.Time
}

// Sender delivers a message over one channel.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, m Message) error

func (f SenderFunc) Send(ctx context.Context, m Message) error { return f(ctx, m) }

// Dispatcher sends messages through the sender registered for their channel.
type Dispatcher struct {
	senders map[identitydomain.Channel]Sender
}

// New returns a Dispatcher over senders. Channels without a sender fail with ErrNoSender.
func New(senders map[identitydomain.Channel]Sender) *Dispatcher {
	m := make(map[identitydomain.Channel]Sender, len(senders))
	for ch, s := range senders {
		if s != nil {
			m[ch] = s
		}
	}
	return &Dispatcher{senders: m}
}

// Dispatch delivers m through the sender for m.Channel.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) error {
	s, ok := d.senders[m.Channel]
	if !ok {
		return fmt.Errorf("%w %q", ErrNoSender, m.Channel)
	}
	if m.To == "" {
		return fmt.Errorf("dispatch: empty recipient for %s", m.Channel)
	}
	return s.Send(ctx, m)
}
