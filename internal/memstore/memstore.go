// Package memstore holds in-memory implementations of every repository. The server uses it in development
// when no DATABASE_URL is set; tests use it as a faithful fake. One mutex guards all tables, which gives
// the same atomicity the Postgres repositories get from transactions and row locks.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	auditdomain "asset-registry/backend/internal/audit/domain"
	auditrepo "asset-registry/backend/internal/audit/repository"
	identitydomain "asset-registry/backend/internal/identity/domain"
	mfadomain "asset-registry/backend/internal/mfa/domain"
	mfarepo "asset-registry/backend/internal/mfa/repository"
	sessiondomain "asset-registry/backend/internal/session/domain"
	sessionrepo "asset-registry/backend/internal/session/repository"
)

// Store is an in-memory database.
type Store struct {
	mu         sync.Mutex
	identities map[string]*identitydomain.Identity
	challenges []*mfadomain.Challenge
	sessions   []*sessiondomain.Session
	events     []*auditdomain.AuditEvent
}

// New returns an empty Store.
func New() *Store {
	return &Store{identities: make(map[string]*identitydomain.Identity)}
}

// Identities returns the identity repository view.
func (s *Store) Identities() *Identities { return &Identities{s} }

// Challenges returns the OTP challenge repository view.
func (s *Store) Challenges() *Challenges { return &Challenges{s} }

// Sessions returns the session repository view.
func (s *Store) Sessions() *Sessions { return &Sessions{s} }

// Audit returns the audit repository view.
func (s *Store) Audit() *Audit { return &Audit{s} }

func (s *Store) liveIdentity(id string) *identitydomain.Identity {
	i, ok := s.identities[id]
	if !ok || i.Deleted() {
		return nil
	}
	return i
}

// Identities implements identity/repository.Repository.
type Identities struct{ s *Store }

func (r *Identities) GetByNameAndIDNumber(_ context.Context, lastName, idNumber string) (*identitydomain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, i := range r.s.identities {
		if !i.Deleted() && i.LastName == lastName && i.IDNumber == idNumber {
			c := *i
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Identities) GetByID(_ context.Context, id string) (*identitydomain.Identity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.s.liveIdentity(id)
	if i == nil {
		return nil, nil
	}
	c := *i
	return &c, nil
}

func (r *Identities) GetPoliceStation(_ context.Context, identityID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i := r.s.liveIdentity(identityID); i != nil {
		return i.PoliceStation, nil
	}
	return "", nil
}

// Upsert inserts or replaces an identity.
func (r *Identities) Upsert(_ context.Context, i *identitydomain.Identity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *i
	r.s.identities[i.ID] = &c
	return nil
}

// Challenges implements mfa/repository.Repository.
type Challenges struct{ s *Store }

func (r *Challenges) Replace(_ context.Context, c *mfadomain.Challenge, cooldown time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.liveIdentity(c.IdentityID) == nil {
		return mfarepo.ErrIdentityNotFound
	}
	if cooldown > 0 {
		var last *mfadomain.Challenge
		for _, x := range r.s.challenges {
			if x.IdentityID == c.IdentityID && !x.DispatchFailed && (last == nil || x.CreatedAt.After(last.CreatedAt)) {
				last = x
			}
		}
		if last != nil {
			if wait := last.CreatedAt.Add(cooldown).Sub(c.CreatedAt); wait > 0 {
				return &mfarepo.CooldownError{RetryAfter: wait}
			}
		}
	}
	for _, x := range r.s.challenges {
		if x.IdentityID == c.IdentityID {
			x.Used = true
		}
	}
	n := *c
	n.Attempts, n.Used, n.DispatchFailed = 0, false, false
	r.s.challenges = append(r.s.challenges, &n)
	return nil
}

func (r *Challenges) GetLatest(_ context.Context, identityID string) (*mfadomain.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *mfadomain.Challenge
	for _, x := range r.s.challenges {
		if x.IdentityID == identityID && (best == nil || !x.CreatedAt.Before(best.CreatedAt)) {
			best = x
		}
	}
	if best == nil {
		return nil, nil
	}
	c := *best
	return &c, nil
}

func (r *Challenges) RecordFailure(_ context.Context, id string, maxAttempts int) (int, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil || x.Used {
		return 0, true, mfarepo.ErrChallengeClosed
	}
	x.Attempts++
	x.Used = x.Attempts >= maxAttempts
	return x.Attempts, x.Used, nil
}

func (r *Challenges) Consume(_ context.Context, id string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	x := r.find(id)
	if x == nil || x.Used || !x.ExpiresAt.After(now) {
		return false, nil
	}
	x.Used = true
	return true, nil
}

func (r *Challenges) Close(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if x := r.find(id); x != nil {
		x.Used = true
	}
	return nil
}

func (r *Challenges) MarkDispatchFailed(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if x := r.find(id); x != nil {
		x.Used, x.DispatchFailed = true, true
	}
	return nil
}

// Get returns a copy of the challenge with id, or nil.
func (r *Challenges) Get(id string) *mfadomain.Challenge {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if x := r.find(id); x != nil {
		c := *x
		return &c
	}
	return nil
}

// CountUnused returns how many unused challenges identityID has.
func (r *Challenges) CountUnused(identityID string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, x := range r.s.challenges {
		if x.IdentityID == identityID && !x.Used {
			n++
		}
	}
	return n
}

func (r *Challenges) find(id string) *mfadomain.Challenge {
	for _, x := range r.s.challenges {
		if x.ID == id {
			return x
		}
	}
	return nil
}

// Sessions implements session/repository.Repository.
type Sessions struct{ s *Store }

func (r *Sessions) ReplaceForIdentity(_ context.Context, sess *sessiondomain.Session) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.liveIdentity(sess.IdentityID) == nil {
		return 0, sessionrepo.ErrIdentityNotFound
	}
	var revoked int64
	for _, x := range r.s.sessions {
		if x.IdentityID == sess.IdentityID && !x.Revoked {
			at := sess.CreatedAt
			x.Revoked, x.RevokedAt = true, &at
			revoked++
		}
	}
	n := *sess
	n.Revoked, n.RevokedAt = false, nil
	r.s.sessions = append(r.s.sessions, &n)
	return revoked, nil
}

func (r *Sessions) GetByTokenHash(_ context.Context, tokenHash string) (*sessiondomain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.sessions {
		if x.TokenHash == tokenHash {
			c := *x
			return &c, nil
		}
	}
	return nil, nil
}

func (r *Sessions) Extend(_ context.Context, id string, expiresAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.sessions {
		if x.ID == id && !x.Revoked && x.ExpiresAt.Before(expiresAt) {
			x.ExpiresAt = expiresAt
			return true, nil
		}
	}
	return false, nil
}

func (r *Sessions) Revoke(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.sessions {
		if x.ID == id && !x.Revoked {
			x.Revoked, x.RevokedAt = true, &at
			return true, nil
		}
	}
	return false, nil
}

// CountLive returns how many non-revoked sessions identityID has.
func (r *Sessions) CountLive(identityID string) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, x := range r.s.sessions {
		if x.IdentityID == identityID && !x.Revoked {
			n++
		}
	}
	return n
}

// Audit implements audit/repository.Repository.
type Audit struct{ s *Store }

func (r *Audit) Create(_ context.Context, e *auditdomain.AuditEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *e
	r.s.events = append(r.s.events, &c)
	return nil
}

func (r *Audit) ListEvents(_ context.Context, f auditrepo.Filter, limit, offset int32) ([]*auditdomain.AuditEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []*auditdomain.AuditEvent
	for _, e := range r.s.events {
		if (f.Event == "" || e.Event == f.Event) && (f.IdentityID == "" || e.IdentityID == f.IdentityID) {
			c := *e
			matched = append(matched, &c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if int(offset) >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Events returns a copy of every recorded audit event in insertion order.
func (r *Audit) Events() []auditdomain.AuditEvent {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]auditdomain.AuditEvent, len(r.s.events))
	for i, e := range r.s.events {
		out[i] = *e
	}
	return out
}
