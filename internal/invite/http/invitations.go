package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/invitesdk"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

// InvitationsHandler is the session-authenticated API for members who
// invite others.
type InvitationsHandler struct {
	Invitations *service.InvitationService
}

// HandleCreate mints an invitation and emails it to the recipient.
//
// Form fields: username, email, and optional window_days.
func (h *InvitationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, invitesdk.ErrorCodeInvalidRequest, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(r.PostFormValue("email"))

	details := map[string]string{}
	if username == "" {
		details["username"] = "required"
	}
	if !strings.Contains(email, "@") {
		details["email"] = "must be an email address"
	}

	days := 0
	if raw := r.PostFormValue("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			details["window_days"] = "must be a positive whole number of days"
		}
		days = n
	}

	if len(details) > 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, invitesdk.ValidationErrorResponse{
			Code:    invitesdk.ErrorCodeValidationError,
			Message: "validation failed for some fields",
			Details: details,
		})
		return
	}

	inv, err := h.Invitations.Invite(ctx, httpx.UserIDFromContext(ctx), username, email, days)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSelfInvitation):
		httpx.WriteError(w, http.StatusBadRequest, invitesdk.ErrorCodeInvalidRequest, "You cannot invite yourself")
		return
	case errors.Is(err, service.ErrInvalidUser):
		httpx.WriteError(w, http.StatusBadRequest, invitesdk.ErrorCodeInvalidRequest, "The recipient cannot be invited")
		return
	case errors.Is(err, service.ErrRecipientActive):
		httpx.WriteError(w, http.StatusConflict, invitesdk.ErrorCodeConflict, "The recipient already has an account")
		return
	default:
		log.Error("failed to create invitation", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to create invitation")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, invitesdk.InvitationResponse{
		ID:             inv.ID,
		Code:           inv.Code,
		ExpirationDate: inv.ExpirationDate,
	})
}

// HandleList returns every outstanding invitation, newest first.
func (h *InvitationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.Invitations.ListInvitations(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list invitations", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to list invitations")
		return
	}

	now := time.Now()
	if h.Invitations.Now != nil {
		now = h.Invitations.Now()
	}

	resp := invitesdk.InvitationListResponse{Invitations: make([]invitesdk.InvitationSummary, 0, len(list))}
	for _, inv := range list {
		resp.Invitations = append(resp.Invitations, invitesdk.InvitationSummary{
			ID:             inv.ID,
			ToUserID:       inv.ToUserID,
			ToUsername:     inv.ToUsername,
			FromUserID:     inv.FromUserID,
			DateInvited:    inv.DateInvited,
			ExpirationDate: inv.ExpirationDate,
			Expired:        inv.Expired(now),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandlePending reports whether a user still has an unused invitation.
// Any member may ask about any user; HandleList already shows them every
// pending recipient.
func (h *InvitationsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("id")

	pending, err := h.Invitations.HasPendingInvitation(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to check pending invitation", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to check invitations")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, invitesdk.PendingInvitationResponse{
		UserID:  userID,
		Pending: pending,
	})
}
