// Package diag defines the stable diagnostic codes attached to every outcome returned to callers.
// Monitoring and clients key on these codes, never on the human-readable message.
package diag

// Code is a stable, machine-readable outcome identifier.
type Code string

const (
	OK Code = "OK"

	// Input validation.
	InvalidInput Code = "INVALID_INPUT"

	// Identity resolution and OTP issue.
	IdentityNotFound Code = "IDENTITY_NOT_FOUND"
	ContactMissing   Code = "CONTACT_MISSING"
	DispatchFailed   Code = "DISPATCH_FAILED"
	ResendTooSoon    Code = "OTP_RESEND_TOO_SOON"

	// OTP verification.
	OTPMismatch Code = "OTP_MISMATCH"
	OTPLocked   Code = "OTP_LOCKED"
	OTPExpired  Code = "OTP_EXPIRED"

	// Sessions.
	SessionInvalid        Code = "SESSION_INVALID"
	SessionNotFound       Code = "SESSION_NOT_FOUND"
	SessionAlreadyRevoked Code = "SESSION_ALREADY_REVOKED"
	SessionExpired        Code = "SESSION_EXPIRED"

	// Authorization.
	PermissionDenied Code = "PERMISSION_DENIED"
	Unauthenticated  Code = "UNAUTHENTICATED"
	RateLimited      Code = "RATE_LIMITED"

	// Dependency or storage failure; never carries the internal cause.
	Internal Code = "INTERNAL"
)

// Domain is the ErrorInfo domain attached to gRPC error details.
const Domain = "asset-registry"

func (c Code) String() string { return string(c) }
