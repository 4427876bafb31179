package security

import (
	"crypto"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed, badly signed, or issued for another audience.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims are the claims of a session bearer token. The token carries no expiry of its own:
// the session row is the authority for validity and sliding expiration.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// TokenProvider issues and parses session bearer tokens signed with RS256 or ES256.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	audience   string
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with privateKey and verifies with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) (*TokenProvider, error) {
	var method jwt.SigningMethod
	switch KeyAlg(privateKey.Public()) {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "ES256":
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if KeyAlg(publicKey) != method.Alg() {
		return nil, ErrInvalidKey
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		nowF:       time.Now,
	}, nil
}

// NewEphemeralTokenProvider returns a TokenProvider backed by a freshly generated ES256 key.
// For development mode and tests only.
func NewEphemeralTokenProvider(issuer, audience string) (*TokenProvider, error) {
	key, err := GenerateEphemeralKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(key, key.Public(), issuer, audience)
}

// Issue mints a bearer token for sessionID. Each call embeds 32 fresh random bytes as the jti,
// so two tokens for the same session never collide.
func (p *TokenProvider) Issue(sessionID string) (string, error) {
	jti, err := randomID(32)
	if err != nil {
		return "", err
	}
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       jti,
			Issuer:   p.issuer,
			Audience: jwt.ClaimStrings{p.audience},
			IssuedAt: jwt.NewNumericDate(p.nowF().UTC()),
		},
		SessionID: sessionID,
	}
	return jwt.NewWithClaims(p.method, claims).SignedString(p.privateKey)
}

// Parse verifies the token signature, issuer, and audience and returns the session id it names.
func (p *TokenProvider) Parse(tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return p.publicKey, nil },
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithTimeFunc(p.nowF),
	)
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.SessionID == "" || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}

func randomID(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
