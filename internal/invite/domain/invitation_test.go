package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInvitationExpired(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	inv := Invitation{DateInvited: t0, ExpirationDate: t0.AddDate(0, 0, DefaultInvitationDays)}

	require.False(t, inv.Expired(t0))
	require.False(t, inv.Expired(t0.AddDate(0, 0, 29)))
	require.False(t, inv.Expired(inv.ExpirationDate), "expiry is strict")
	require.True(t, inv.Expired(inv.ExpirationDate.Add(time.Nanosecond)))
	require.True(t, inv.Expired(t0.AddDate(0, 0, 31)))
}

func TestInvitationString(t *testing.T) {
	require.Equal(t, "Invitation to alice", Invitation{ToUserID: "01H", ToUsername: "alice"}.String())
	require.Equal(t, "Invitation to 01H", Invitation{ToUserID: "01H"}.String())
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	require.True(t, Session{ExpiresAt: now.Add(time.Minute)}.Active(now))
	require.False(t, Session{ExpiresAt: now.Add(-time.Minute)}.Active(now))
	require.False(t, Session{ExpiresAt: now.Add(time.Minute), Revoked: true}.Active(now))
}
