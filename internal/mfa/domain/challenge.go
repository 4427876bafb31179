package domain

import (
	"time"

	identitydomain "asset-registry/backend/internal/identity/domain"
)

// Challenge is one issued OTP (stored in otp_challenges). Only the keyed digest of the code is kept.
// Used is terminal: once set, the challenge can never authenticate again.
type Challenge struct {
	ID             string
	IdentityID     string
	CodeHash       string
	Channel        identitydomain.Channel
	ExpiresAt      time.Time
	Attempts       int
	Used           bool
	DispatchFailed bool
	CreatedAt      time.Time
}

// Expired reports whether the challenge is past its expiry at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// VerifyStatus is the outcome of a verification attempt. Every status is an expected result, not an error.
type VerifyStatus string

const (
	StatusAuthenticated VerifyStatus = "AUTHENTICATED"
	StatusRetry         VerifyStatus = "RETRY"
	StatusLockedOut     VerifyStatus = "LOCKED_OUT"
	StatusExpired       VerifyStatus = "EXPIRED"
)
