// Package devotp captures OTP codes in memory instead of sending them, for development only (DevService/GetOTP).
package devotp

import (
	"context"
	"sync"
	"time"

	"asset-registry/backend/internal/mfa/dispatch"
)

// Store holds plain OTP by challenge_id for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores otp for challengeID until expiresAt.
	Put(ctx context.Context, challengeID, otp string, expiresAt time.Time)
	// Get returns the otp for challengeID if present and not expired.
	Get(ctx context.Context, challengeID string) (otp string, ok bool)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store. Expired entries are pruned on Put and on Get.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put stores otp for challengeID until expiresAt.
func (s *MemoryStore) Put(_ context.Context, challengeID, otp string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowF()
	for id, e := range s.m {
		if !e.expiresAt.After(now) {
			delete(s.m, id)
		}
	}
	s.m[challengeID] = entry{otp: otp, expiresAt: expiresAt}
}

// Get returns the otp for challengeID if present and not expired.
func (s *MemoryStore) Get(_ context.Context, challengeID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[challengeID]
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		delete(s.m, challengeID)
		return "", false
	}
	return e.otp, true
}

// Len returns the number of entries held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Sender is a dispatch.Sender that captures codes in a Store rather than delivering them.
type Sender struct {
	store Store
}

// NewSender returns a capturing sender backed by store.
func NewSender(store Store) *Sender {
	return &Sender{store: store}
}

// Send implements dispatch.Sender.
func (s *Sender) Send(ctx context.Context, m dispatch.Message) error {
	s.store.Put(ctx, m.ChallengeID, m.Code, m.ExpiresAt)
	return nil
}
