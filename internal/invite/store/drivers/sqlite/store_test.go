package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s store.Store, username string) domain.User {
	t.Helper()
	u := domain.User{ID: idx.New().String(), Username: username, Email: username + "@example.com"}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	got, err := s.Users().GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

func seedInvitation(t *testing.T, s store.Store, to, from domain.User, invited time.Time, days int) domain.Invitation {
	t.Helper()
	inv := domain.Invitation{
		ID:             idx.New().String(),
		Code:           idx.New().String(),
		DateInvited:    invited,
		ExpirationDate: invited.AddDate(0, 0, days),
		ToUserID:       to.ID,
		FromUserID:     from.ID,
	}
	require.NoError(t, s.Invitations().CreateInvitation(context.Background(), inv))
	return inv
}

func TestFileDSN(t *testing.T) {
	dsn := FileDSN("/var/lib/invite/invite.db")
	require.Contains(t, dsn, "file:/var/lib/invite/invite.db?")
	require.Contains(t, dsn, "_txlock=immediate")
	require.Contains(t, dsn, "foreign_keys%281%29")
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice := seedUser(t, s, "alice")
	require.False(t, alice.HasPassword())
	require.False(t, alice.CreatedAt.IsZero())

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	byName, err := s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, byName.ID)

	err = s.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "alice"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, alice.ID, "argon2id$x"))
	got, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "argon2id$x", got.PasswordHash)

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "h"), store.ErrNotFound)
	_, err = s.Users().GetUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInvitations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := seedUser(t, s, "alice")
	admin := seedUser(t, s, "admin")

	t0 := time.Date(2024, 1, 1, 9, 30, 0, 123456789, time.UTC)
	inv := seedInvitation(t, s, alice, admin, t0, 30)

	got, err := s.Invitations().GetInvitationByCode(ctx, inv.Code)
	require.NoError(t, err)
	require.Equal(t, inv.ID, got.ID)
	require.True(t, got.DateInvited.Equal(t0))
	require.True(t, got.ExpirationDate.Equal(t0.AddDate(0, 0, 30)))
	require.Equal(t, "alice", got.ToUsername)
	require.Equal(t, admin.ID, got.FromUserID)
	require.False(t, got.Used)

	n, err := s.Invitations().CountPendingInvitations(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	dup := inv
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Invitations().CreateInvitation(ctx, dup), store.ErrAlreadyExists)

	require.NoError(t, s.Invitations().DeleteInvitation(ctx, inv.ID))
	require.ErrorIs(t, s.Invitations().DeleteInvitation(ctx, inv.ID), store.ErrNotFound)

	_, err = s.Invitations().GetInvitationByCode(ctx, inv.Code)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateInvitationDanglingUser(t *testing.T) {
	s := newTestStore(t)
	admin := seedUser(t, s, "admin")

	err := s.Invitations().CreateInvitation(context.Background(), domain.Invitation{
		ID:             idx.New().String(),
		Code:           "abc",
		DateInvited:    time.Now(),
		ExpirationDate: time.Now().Add(time.Hour),
		ToUserID:       "ghost",
		FromUserID:     admin.ID,
	})
	require.Error(t, err)
	require.False(t, errors.Is(err, store.ErrAlreadyExists))
}

func TestListInvitationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin")
	a := seedUser(t, s, "a")
	b := seedUser(t, s, "b")

	t0 := time.Now().UTC()
	older := seedInvitation(t, s, a, admin, t0.Add(-time.Hour), 30)
	newer := seedInvitation(t, s, b, admin, t0, 30)

	list, err := s.Invitations().ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)
}

func TestDeleteExpiredInvitations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	admin := seedUser(t, s, "admin")

	now := time.Now().UTC()
	expired := seedInvitation(t, s, seedUser(t, s, "old"), admin, now.AddDate(0, 0, -31), 30)
	live := seedInvitation(t, s, seedUser(t, s, "new"), admin, now.AddDate(0, 0, -29), 30)

	n, err := s.Invitations().DeleteExpiredInvitations(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.Invitations().GetInvitationByCode(ctx, expired.Code)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Invitations().GetInvitationByCode(ctx, live.Code)
	require.NoError(t, err)

	n, err = s.Invitations().DeleteExpiredInvitations(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := seedUser(t, s, "alice")

	now := time.Now().UTC()
	live := domain.Session{ID: idx.New().String(), UserID: alice.ID, UserAgent: "test", IPAddress: "127.0.0.1", ExpiresAt: now.Add(time.Hour)}
	stale := domain.Session{ID: idx.New().String(), UserID: alice.ID, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.Sessions().CreateSession(ctx, live))
	require.NoError(t, s.Sessions().CreateSession(ctx, stale))

	got, err := s.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)
	require.True(t, got.Active(now))
	require.Equal(t, "test", got.UserAgent)

	n, err := s.Sessions().DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, s.Sessions().RevokeSession(ctx, live.ID))
	got, err = s.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)
	require.False(t, got.Active(now))

	require.ErrorIs(t, s.Sessions().RevokeSession(ctx, "missing"), store.ErrNotFound)
}

func TestProfiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	alice := seedUser(t, s, "alice")

	require.NoError(t, s.Profiles().CreateProfile(ctx, domain.Profile{UserID: alice.ID, Slug: "alice"}))
	require.ErrorIs(t, s.Profiles().CreateProfile(ctx, domain.Profile{UserID: alice.ID, Slug: "alice-2"}), store.ErrAlreadyExists)

	p, err := s.Profiles().GetProfileBySlug(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, p.UserID)

	p, err = s.Profiles().GetProfileByUserID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, "/profiles/alice/", p.URL())
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "ghost"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithTx(ctx, func(tx store.Tx) error {
		return tx.WithTx(ctx, func(store.Tx) error { return nil })
	})
	require.Error(t, err, "nested transactions are not supported")
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(FileDSN(filepath.Join(t.TempDir(), "invite.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(ctx))

	alice := seedUser(t, s, "alice")
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().UpdatePasswordHash(ctx, alice.ID, "h")
	}))
}
