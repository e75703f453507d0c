package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// InvitationCodeLength is the length of every invitation code (hex SHA-256).
const InvitationCodeLength = sha256.Size * 2

// NewInvitationCode derives an opaque invitation code by hashing the
// invitation time, 128 bits of random salt and the recipient's identity.
// Collisions are not retried; the hash space makes them negligible.
func NewInvitationCode(at time.Time, identity string) (string, error) {
	salt, err := GenerateToken(TokenSize128)
	if err != nil {
		return "", fmt.Errorf("cryptox: invitation salt: %w", err)
	}

	sum := sha256.Sum256([]byte(at.Format(time.RFC3339Nano) + salt + identity))
	return hex.EncodeToString(sum[:]), nil
}

// IsInvitationCode reports whether s has the shape of an invitation code.
// It lets callers reject garbage before touching the store.
func IsInvitationCode(s string) bool {
	if len(s) != InvitationCodeLength {
		return false
	}
	for i := range len(s) {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
