package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 30, cfg.InvitationDays)
	require.Equal(t, "invitation.PasswordForm", cfg.InvitationForm)
	require.Equal(t, "/invite/complete/", cfg.LoginRedirectURL)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, 587, cfg.SMTP.Port)
	require.Equal(t, uint(3), cfg.SMTP.Attempts)
	require.Equal(t, "invite.redeemed", cfg.RedisChannel)
	require.False(t, cfg.SecureCookies())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("INVITATION_DAYS", "7")
	t.Setenv("INVITATION_FORM", "invitation.ConfirmedPasswordForm")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("HOUSEKEEPING_INTERVAL", "15m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.InvitationDays)
	require.Equal(t, "invitation.ConfirmedPasswordForm", cfg.InvitationForm)
	require.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	require.Equal(t, 2525, cfg.SMTP.Port)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
	require.True(t, cfg.SecureCookies())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("unparseable", func(t *testing.T) {
		t.Setenv("INVITATION_DAYS", "thirty")
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("zero window", func(t *testing.T) {
		t.Setenv("INVITATION_DAYS", "0")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "INVITATION_DAYS")
	})

	t.Run("port", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "PORT")
	})
}
