package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/invite/internal/invite/domain"
	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/internal/invite/templates"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

const (
	MessageInvalidCode = "The invitation code is not valid. Please check the link provided and try again."
	MessageExpired     = "This invitation has expired."
	MessageActive      = "This account is already active. Please log in instead."
	MessageServerError = "Something went wrong while accepting your invitation. Please try again later."
)

// RedeemHandler serves the page behind the link in an invitation email.
type RedeemHandler struct {
	Redemption    *service.RedemptionService
	Pages         *templates.Renderer
	Site          templates.Site
	SecureCookies bool
}

type acceptPage struct {
	templates.Base
	Invitation domain.Invitation
	Action     string
	Fields     []service.FormField
}

type messagePage struct {
	templates.Base
	Message string
}

// HandleGet shows the password form for a redeemable invitation.
func (h *RedeemHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	inv, err := h.Redemption.Lookup(r.Context(), code)
	if err != nil {
		h.renderLookupError(w, r, err)
		return
	}

	h.renderForm(w, r, inv, h.Redemption.NewForm())
}

// HandlePost validates the chosen password and redeems the invitation. An
// invalid form re-renders with errors and changes nothing.
func (h *RedeemHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	code := r.PathValue("code")

	inv, err := h.Redemption.Lookup(ctx, code)
	if err != nil {
		h.renderLookupError(w, r, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.renderMessage(w, r, http.StatusBadRequest, "Invalid invitation", "The submitted form could not be read.")
		return
	}

	form := h.Redemption.NewForm()
	form.Bind(r.PostForm)
	if !form.Valid() {
		h.renderForm(w, r, inv, form)
		return
	}

	res, err := h.Redemption.Redeem(ctx, code, form, service.RequestMeta{
		UserAgent: r.UserAgent(),
		IPAddress: httpx.IPKeyExtractor(r),
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidForm):
		h.renderForm(w, r, inv, form)
		return
	default:
		h.renderLookupError(w, r, err)
		return
	}

	if res.Token != "" {
		httpx.SetSessionCookie(w, res.Token, res.Session.ExpiresAt, h.SecureCookies)
	}

	log.Info("invitation redeemed", slog.String("user_id", res.User.ID))
	httpx.NoCache(w)
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}

func (h *RedeemHandler) renderForm(w http.ResponseWriter, r *http.Request, inv domain.Invitation, form service.Form) {
	h.render(w, r, http.StatusOK, "accepted.html", acceptPage{
		Base:       templates.Base{Title: "Accept invitation", Site: h.Site},
		Invitation: inv,
		Action:     r.URL.Path,
		Fields:     form.Fields(),
	})
}

func (h *RedeemHandler) renderLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvitationNotFound):
		h.renderMessage(w, r, http.StatusNotFound, "Invalid invitation", MessageInvalidCode)
	case errors.Is(err, service.ErrInvitationExpired):
		h.renderMessage(w, r, http.StatusGone, "Invitation expired", MessageExpired)
	case errors.Is(err, service.ErrRecipientActive):
		h.renderMessage(w, r, http.StatusConflict, "Invalid invitation", MessageActive)
	default:
		slogx.FromContext(r.Context()).Error("invitation lookup failed", slog.Any("error", err))
		h.renderMessage(w, r, http.StatusInternalServerError, "Error", MessageServerError)
	}
}

func (h *RedeemHandler) renderMessage(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	h.render(w, r, status, "invalid.html", messagePage{
		Base:    templates.Base{Title: title, Site: h.Site},
		Message: msg,
	})
}

func (h *RedeemHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	renderPage(w, r, h.Pages, status, name, data)
}

// renderPage writes an HTML page. Rendering is buffered, so a template
// failure still produces a clean 500.
func renderPage(w http.ResponseWriter, r *http.Request, pages *templates.Renderer, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.Page(&buf, name, data); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
