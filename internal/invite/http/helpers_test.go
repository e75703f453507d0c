package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/store/drivers/sqlite"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/cryptox"
	"github.com/aussiebroadwan/invite/pkg/jwtx"
	"github.com/aussiebroadwan/invite/pkg/mailx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testBootstrapToken = "bootstrap-secret"

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "invite-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, mailx.Message) error { return nil }

type harness struct {
	t      *testing.T
	store  *sqlite.Store
	clock  *clock
	router *Router
	server *httptest.Server
	admin  domain.User
	token  string // admin session token
}

var t0 = time.Now().UTC().Truncate(time.Second)

// newHarness serves the full router with an admin account already logged in.
func newHarness(t *testing.T) *harness {
	t.Helper()
	h := newEmptyHarness(t)
	ctx := context.Background()

	admin, err := h.router.AccountService.EnsureUser(ctx, "admin", "admin@example.com")
	require.NoError(t, err)
	sess, err := h.router.AccountService.CreateSession(ctx, h.store, admin, service.RequestMeta{})
	require.NoError(t, err)
	h.token, err = h.router.AccountService.IssueToken(admin, sess)
	require.NoError(t, err)
	h.admin = admin

	return h
}

// newEmptyHarness serves the full router over an empty database.
func newEmptyHarness(t *testing.T) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := jwtx.LoadOrGenerateKey("")
	require.NoError(t, err)
	signer, err := jwtx.NewSessionSigner(key, "invite-test")
	require.NoError(t, err)

	pages, err := templates.New()
	require.NoError(t, err)
	site := templates.Site{Name: "Example", Domain: "example.com"}

	c := &clock{t: t0}
	events := service.NewDispatcher()

	accounts := &service.AccountService{Store: st, Signer: signer, Now: c.Now}
	profiles := &service.ProfileService{Store: st}
	invitations := &service.InvitationService{
		Store:            st,
		Accounts:         accounts,
		Mailer:           nopMailer{},
		Templates:        pages,
		Site:             site,
		DefaultDays:      domain.DefaultInvitationDays,
		DefaultFromEmail: "noreply@example.com",
		Now:              c.Now,
	}
	redemption := &service.RedemptionService{
		Store:            st,
		Accounts:         accounts,
		Profiles:         profiles,
		Events:           events,
		LoginRedirectURL: "/invite/complete/",
		Now:              c.Now,
	}

	r := NewRouter("test", st, pages, site, false, slogx.Discard())
	r.AccountService = accounts
	r.InvitationService = invitations
	r.RedemptionService = redemption
	r.ProfileService = profiles
	r.BootstrapService = &service.BootstrapService{Store: st, Token: testBootstrapToken}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &harness{t: t, store: st, clock: c, router: r, server: srv}
}

// invite mints an invitation through the service layer.
func (h *harness) invite(username string) domain.Invitation {
	h.t.Helper()
	inv, err := h.router.InvitationService.Invite(context.Background(), h.admin.ID, username, username+"@example.com", 0)
	require.NoError(h.t, err)
	return inv
}

func (h *harness) client() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (h *harness) do(req *http.Request) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	return h.do(req)
}

func (h *harness) postForm(path string, values url.Values, bearer string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return h.do(req)
}

func (h *harness) getAuthed(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.server.URL+path, nil)
	require.NoError(h.t, err)
	req.Header.Set("Authorization", "Bearer "+h.token)
	return h.do(req)
}
