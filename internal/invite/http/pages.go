package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/store"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

// CompleteHandler is the landing page after a redemption when no better
// destination is configured.
type CompleteHandler struct {
	Pages *templates.Renderer
	Site  templates.Site
}

func (h *CompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.Pages, http.StatusOK, "complete.html", templates.Base{
		Title: "Welcome",
		Site:  h.Site,
	})
}

// ProfileHandler shows a member's public profile page.
type ProfileHandler struct {
	Profiles *service.ProfileService
	Pages    *templates.Renderer
	Site     templates.Site
}

type profilePage struct {
	templates.Base
	Profile domain.Profile
	User    domain.User
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	profile, user, err := h.Profiles.GetProfileBySlug(r.Context(), r.PathValue("slug"))
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slogx.FromContext(r.Context()).Error("failed to load profile", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	renderPage(w, r, h.Pages, http.StatusOK, "profile.html", profilePage{
		Base:    templates.Base{Title: user.Username, Site: h.Site},
		Profile: profile,
		User:    user,
	})
}
