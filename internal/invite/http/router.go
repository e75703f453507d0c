package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion  string
	startTime     time.Time
	logger        *slog.Logger
	store         store.Store
	pages         *templates.Renderer
	site          templates.Site
	secureCookies bool

	AccountService    *service.AccountService
	InvitationService *service.InvitationService
	RedemptionService *service.RedemptionService
	ProfileService    *service.ProfileService
	BootstrapService  *service.BootstrapService
	RedisPublisher    *service.RedisPublisher // optional
}

func NewRouter(
	buildVersion string,
	st store.Store,
	pages *templates.Renderer,
	site templates.Site,
	secureCookies bool,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		store:         st,
		pages:         pages,
		site:          site,
		secureCookies: secureCookies,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, RedactPath),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerRedemption()
	r.registerProfiles()
	r.registerInvitations()
	r.registerSessions()
	r.registerBootstrap()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// RedactPath hides invitation codes from request logs.
func RedactPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/invite/")
	if !ok || rest == "" || strings.HasPrefix(rest, "complete/") {
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/invite/{code}" + rest[i:]
	}
	return "/invite/{code}"
}

func (r *Router) registerRedemption() {
	h := &RedeemHandler{
		Redemption:    r.RedemptionService,
		Pages:         r.pages,
		Site:          r.site,
		SecureCookies: r.secureCookies,
	}

	// GET shows the form; page views get the lenient limit.
	r.Mux.Handle("GET /invite/{code}/{$}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST hashes a password per attempt, so it is strict per client and code.
	r.Mux.Handle("POST /invite/{code}/{$}",
		httpx.Chain(http.HandlerFunc(h.HandlePost),
			httpx.RateLimitByIPAndPathValue(httpx.StrictLimit, "code"),
		),
	)

	r.Mux.Handle("GET /invite/complete/{$}",
		httpx.Chain(&CompleteHandler{Pages: r.pages, Site: r.site},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerProfiles() {
	h := &ProfileHandler{Profiles: r.ProfileService, Pages: r.pages, Site: r.site}
	r.Mux.Handle("GET /profiles/{slug}/{$}",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{Invitations: r.InvitationService}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.SessionMiddleware(r.AccountService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/invitations", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/invitations", secured(h.HandleList))
	r.Mux.Handle("GET /v1/users/{id}/pending-invitation", secured(h.HandlePending))
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Accounts: r.AccountService, SecureCookies: r.secureCookies}
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.SessionMiddleware(r.AccountService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - strict rate limit by IP (one-time setup endpoint)
	h := &BootstrapHandler{BootstrapService: r.BootstrapService, Accounts: r.AccountService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.AccountService, r.RedisPublisher),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
