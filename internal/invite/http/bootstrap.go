package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/invite/internal/invite/service"
	"github.com/aussiebroadwan/invite/pkg/httpx"
	"github.com/aussiebroadwan/invite/pkg/invitesdk"
	"github.com/aussiebroadwan/invite/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
	Accounts         *service.AccountService
}

// ServeHTTP creates the first account and logs it in. It is only available
// when a bootstrap token is configured, and only until a user exists.
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)
	l.Info("Starting to bootstrap")

	// 1. Check if enabled
	if h.BootstrapService.Token == "" {
		httpx.WriteJSON(w, http.StatusNotFound, invitesdk.ErrorResponse{
			Error:            invitesdk.ErrorCodeNotFound,
			ErrorDescription: "Bootstrap endpoint is not enabled",
		})
		return
	}

	// 2. Require bootstrap token header
	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		httpx.WriteJSON(w, http.StatusUnauthorized, invitesdk.ErrorResponse{
			Error:            invitesdk.ErrorCodeUnauthorized,
			ErrorDescription: "Bootstrap token is required in X-Bootstrap-Token header",
		})
		return
	}

	// 3. Refuse early once any account exists
	done, err := h.BootstrapService.IsBootstrapped(ctx)
	if err != nil {
		l.Error("failed to check bootstrap state", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "An internal error occurred")
		return
	}
	if done {
		httpx.WriteJSON(w, http.StatusUnauthorized, invitesdk.ErrorResponse{
			Error:            invitesdk.ErrorCodeUnauthorized,
			ErrorDescription: "System has already been bootstrapped",
		})
		return
	}

	// 4. Parse request body and validate
	var req invitesdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, invitesdk.ErrorResponse{
			Error:            invitesdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Request body must be valid JSON",
		})
		return
	}
	if errs := req.Validate(); errs != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, invitesdk.ValidationErrorResponse{
			Code:    invitesdk.ErrorCodeValidationError,
			Message: "validation failed for some fields",
			Details: errs,
		})
		return
	}

	// 5. Perform bootstrap
	user, err := h.BootstrapService.Bootstrap(ctx, token, service.BootstrapRequest{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyBootstrapped):
			httpx.WriteJSON(w, http.StatusUnauthorized, invitesdk.ErrorResponse{
				Error:            invitesdk.ErrorCodeUnauthorized,
				ErrorDescription: "System has already been bootstrapped",
			})
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteJSON(w, http.StatusUnauthorized, invitesdk.ErrorResponse{
				Error:            invitesdk.ErrorCodeUnauthorized,
				ErrorDescription: "Invalid bootstrap token",
			})
		case errors.Is(err, service.ErrBootstrapInvalid):
			httpx.WriteJSON(w, http.StatusBadRequest, invitesdk.ErrorResponse{
				Error:            invitesdk.ErrorCodeInvalidRequest,
				ErrorDescription: err.Error(),
			})
		default:
			httpx.WriteJSON(w, http.StatusInternalServerError, invitesdk.ErrorResponse{
				Error:            invitesdk.ErrorCodeServerError,
				ErrorDescription: "An internal error occurred",
			})
		}
		return
	}

	// 6. Log the new account in
	sess, err := h.Accounts.CreateSession(ctx, h.Accounts.Store, user, service.RequestMeta{
		UserAgent: r.UserAgent(),
		IPAddress: httpx.IPKeyExtractor(r),
	})
	if err != nil {
		l.Error("failed to create bootstrap session", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to create session")
		return
	}
	sessionToken, err := h.Accounts.IssueToken(user, sess)
	if err != nil {
		l.Error("failed to sign bootstrap session", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, invitesdk.ErrorCodeServerError, "Failed to create session")
		return
	}

	// 7. Respond with the session token (only shown once)
	httpx.WriteJSON(w, http.StatusCreated, invitesdk.BootstrapResponse{
		UserID:       user.ID,
		Username:     user.Username,
		SessionToken: sessionToken,
		ExpiresAt:    sess.ExpiresAt,
	})
}
