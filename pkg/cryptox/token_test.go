package cryptox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	for _, size := range []int{TokenSize128, TokenSize256, 24} {
		token, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		token2, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, token2, "tokens should be unique")
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("test-token-1")
	fp1b := FingerprintToken("test-token-1")
	fp2 := FingerprintToken("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}

func TestEqualTokens(t *testing.T) {
	require.True(t, EqualTokens("bootstrap", "bootstrap"))
	require.False(t, EqualTokens("bootstrap", "bootstrap2"))
	require.False(t, EqualTokens("", "bootstrap"))
}

func TestNewInvitationCode(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := NewInvitationCode(at, "alice")
	require.NoError(t, err)
	require.Len(t, code, InvitationCodeLength)
	require.True(t, IsInvitationCode(code))

	// Same instant and recipient still differ because of the salt.
	other, err := NewInvitationCode(at, "alice")
	require.NoError(t, err)
	require.NotEqual(t, code, other)
}

func TestIsInvitationCode(t *testing.T) {
	require.False(t, IsInvitationCode(""))
	require.False(t, IsInvitationCode("abc"))
	require.False(t, IsInvitationCode(strings.Repeat("A", InvitationCodeLength)))
	require.False(t, IsInvitationCode(strings.Repeat("g", InvitationCodeLength)))
	require.True(t, IsInvitationCode(strings.Repeat("0f", InvitationCodeLength/2)))
}
