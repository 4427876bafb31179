package repository

import (
	"context"
	"errors"
	"time"

	"asset-registry/backend/internal/mfa/domain"
)

var (
	// ErrChallengeClosed is returned by RecordFailure when the challenge was already used.
	ErrChallengeClosed = errors.New("challenge closed")
	// ErrIdentityNotFound is returned by Replace when the identity row is missing or soft-deleted.
	ErrIdentityNotFound = errors.New("identity not found")
)

// CooldownError is returned by Replace when a challenge was issued for the identity within the cooldown.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return "otp resend cooldown active; retry after " + e.RetryAfter.Round(time.Second).String()
}

// Repository defines persistence for OTP challenges.
type Repository interface {
	// Replace closes every unused challenge for c.IdentityID and inserts c, atomically under the identity row lock.
	// When cooldown > 0 and a delivered challenge was created less than cooldown before c.CreatedAt,
	// nothing is written and a *CooldownError is returned.
	Replace(ctx context.Context, c *domain.Challenge, cooldown time.Duration) error
	// GetLatest returns the most recently created challenge for identityID, used or not, or nil if none.
	// A locked or consumed challenge is still returned so the caller can tell it apart from a missing one.
	GetLatest(ctx context.Context, identityID string) (*domain.Challenge, error)
	// RecordFailure increments attempts and closes the challenge when attempts reaches maxAttempts,
	// in one statement. Returns ErrChallengeClosed when the challenge was already used.
	RecordFailure(ctx context.Context, id string, maxAttempts int) (attempts int, closed bool, err error)
	// Consume marks an unused, unexpired challenge used. Returns false when another request won the race
	// or the challenge expired.
	Consume(ctx context.Context, id string, now time.Time) (bool, error)
	// Close marks the challenge used.
	Close(ctx context.Context, id string) error
	// MarkDispatchFailed closes the challenge and records that delivery failed, which exempts it
	// from the resend cooldown.
	MarkDispatchFailed(ctx context.Context, id string) error
}
