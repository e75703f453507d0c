package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/store/drivers/sqlite"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/jwtx"
	"github.com/aussiebroadwan/invite/pkg/mailx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "invite-service")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailx.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mailx.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) Sent() []mailx.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailx.Message(nil), m.sent...)
}

type fixture struct {
	store       *sqlite.Store
	clock       *fakeClock
	mailer      *captureMailer
	events      *Dispatcher
	accounts    *AccountService
	profiles    *ProfileService
	invitations *InvitationService
	redemption  *RedemptionService
	admin       domain.User
}

// t0 tracks the wall clock so signed session tokens verify against the real
// time the JWT library checks.
var t0 = time.Now().UTC().Truncate(time.Second)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	return buildFixture(t, st)
}

// newFileFixture backs the fixture with an on-disk database so transactions
// can really run concurrently.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.NewStore(sqlite.FileDSN(filepath.Join(t.TempDir(), "invite.db")))
	require.NoError(t, err)
	return buildFixture(t, st)
}

func newEmptyStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return st
}

func buildFixture(t *testing.T, st *sqlite.Store) *fixture {
	t.Helper()
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := jwtx.LoadOrGenerateKey("")
	require.NoError(t, err)
	signer, err := jwtx.NewSessionSigner(key, "invite-test")
	require.NoError(t, err)

	renderer, err := templates.New()
	require.NoError(t, err)

	clock := &fakeClock{t: t0}
	f := &fixture{store: st, clock: clock, mailer: &captureMailer{}, events: NewDispatcher()}

	f.accounts = &AccountService{Store: st, Signer: signer, Now: clock.Now}
	f.profiles = &ProfileService{Store: st}
	f.invitations = &InvitationService{
		Store:            st,
		Accounts:         f.accounts,
		Mailer:           f.mailer,
		Templates:        renderer,
		Site:             templates.Site{Name: "Example", Domain: "example.com"},
		DefaultDays:      domain.DefaultInvitationDays,
		DefaultFromEmail: "noreply@example.com",
		Now:              clock.Now,
	}
	f.redemption = &RedemptionService{
		Store:            st,
		Accounts:         f.accounts,
		Profiles:         f.profiles,
		Forms:            func() Form { return &PasswordForm{} },
		Events:           f.events,
		LoginRedirectURL: "/welcome/",
		Now:              clock.Now,
	}

	f.admin, err = f.accounts.EnsureUser(context.Background(), "admin", "admin@example.com")
	require.NoError(t, err)
	return f
}

// invite mints an invitation for a new passwordless user at the current
// fixture time.
func (f *fixture) invite(t *testing.T, username string) domain.Invitation {
	t.Helper()
	ctx := context.Background()
	to, err := f.accounts.EnsureUser(ctx, username, username+"@example.com")
	require.NoError(t, err)
	inv, err := f.invitations.CreateInvitation(ctx, to, f.admin, 0)
	require.NoError(t, err)
	return inv
}

func passwordForm(pw string) Form {
	f := &PasswordForm{}
	f.Bind(map[string][]string{"password": {pw}})
	return f
}

func testContext() context.Context {
	return slogx.WithContext(context.Background(), slogx.Discard())
}
