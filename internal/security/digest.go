package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Digest purposes. Each yields an independent key so an OTP digest can never match a session digest.
const (
	PurposeOTP     = "otp"
	PurposeSession = "session"
)

// ErrEmptyPepper is returned when no pepper is supplied.
var ErrEmptyPepper = errors.New("token pepper is empty")

// Digester computes keyed one-way digests (HMAC-SHA256) of secrets before they are stored.
// Raw OTPs and bearer tokens are never persisted; only their digests are.
type Digester struct {
	key []byte
}

// NewDigester derives a purpose-specific key from pepper with HKDF-SHA256.
func NewDigester(pepper []byte, purpose string) (*Digester, error) {
	if len(pepper) == 0 {
		return nil, ErrEmptyPepper
	}
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, pepper, nil, []byte("asset-registry/"+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return &Digester{key: key}, nil
}

// Digest returns the hex-encoded HMAC of secret.
func (d *Digester) Digest(secret string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal reports whether secret digests to stored, in constant time. Empty inputs never match.
func (d *Digester) Equal(secret, stored string) bool {
	if secret == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(d.Digest(secret)), []byte(stored)) == 1
}
