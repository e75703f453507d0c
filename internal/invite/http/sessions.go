package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/invitesdk"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

type SessionsHandler struct {
	Accounts      *service.AccountService
	SecureCookies bool
}

// HandleLogout revokes the caller's session and drops the cookie set at
// redemption.
func (h *SessionsHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Accounts.RevokeSession(ctx, httpx.SessionIDFromContext(ctx)); err != nil {
		slogx.FromContext(ctx).Error("failed to revoke session", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to log out")
		return
	}

	httpx.ClearSessionCookie(w, h.SecureCookies)
	w.WriteHeader(http.StatusNoContent)
}
