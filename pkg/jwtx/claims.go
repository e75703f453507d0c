package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a login session established by redeeming an
// invitation stays valid.
const DefaultSessionTTL = 14 * 24 * time.Hour

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrIssuer    = errors.New("jwtx: issuer mismatch")
	ErrExpired   = errors.New("jwtx: token expired")
	ErrNoSession = errors.New("jwtx: token has no session id")
)

// Claims are the session-token claims. The session row referenced by SID is
// the source of truth for revocation; the token only proves who minted it.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID, matches sessions.id
	SID string `json:"sid"`

	Username string `json:"username,omitempty"`
}

// NewSessionClaims builds claims for a freshly created session.
func NewSessionClaims(userID, username, sid, issuer string, expiresAt, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        NewJTI(),
		},
		SID:      sid,
		Username: username,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
