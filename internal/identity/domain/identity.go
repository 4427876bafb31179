package domain

import "time"

// Identity is a registered person eligible for OTP login. It is owned by the registration
// workflow and read-only to the auth core.
type Identity struct {
	ID            string
	LastName      string
	IDNumber      string
	Phone         string // empty when no phone is on file
	Email         string // empty when no email is on file
	Role          Role
	PoliceStation string // only meaningful for RolePolice; empty when unassigned
	DeletedAt     *time.Time
	CreatedAt     time.Time
}

// Deleted reports whether the identity carries a soft-delete tombstone.
func (i *Identity) Deleted() bool {
	return i.DeletedAt != nil
}

// Contact returns the contact value on file for ch, or "" if none.
func (i *Identity) Contact(ch Channel) string {
	switch ch {
	case ChannelSMS:
		return i.Phone
	case ChannelEmail:
		return i.Email
	default:
		return ""
	}
}

// Channels returns the delivery channels for which contact data exists, SMS first.
func (i *Identity) Channels() []Channel {
	out := make([]Channel, 0, 2)
	if i.Phone != "" {
		out = append(out, ChannelSMS)
	}
	if i.Email != "" {
		out = append(out, ChannelEmail)
	}
	return out
}

type Role string

const (
	RoleUser    Role = "user"
	RolePolice  Role = "police"
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Privileged reports whether the role sees the whole catalogue.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleCashier
}

// Known reports whether r is one of the registered roles.
func (r Role) Known() bool {
	switch r {
	case RoleUser, RolePolice, RoleAdmin, RoleCashier:
		return true
	}
	return false
}

// Channel is an OTP delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ParseChannel returns the channel for s and false if s is not a supported channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelEmail:
		return ChannelEmail, true
	}
	return "", false
}
