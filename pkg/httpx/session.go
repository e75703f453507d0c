package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/invite/pkg/slogx"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "invite_session"

// SessionVerifier resolves a raw session token to the owning user and session.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (userID, sessionID string, err error)
}

// SessionMiddleware requires a valid session from either a bearer token or
// the session cookie, and injects the user and session IDs into the context.
func SessionMiddleware(v SessionVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := SessionToken(r)
			if token == "" {
				WriteError(w, http.StatusUnauthorized, "login_required", "a session is required")
				return
			}

			userID, sessionID, err := v.VerifySession(ctx, token)
			if err != nil {
				slogx.FromContext(ctx).Warn("session verification failed", "err", err)
				WriteError(w, http.StatusUnauthorized, "invalid_session", "session is invalid or expired")
				return
			}

			ctx = contextWithSession(ctx, userID, sessionID)
			ctx = slogx.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken extracts the bearer token, falling back to the session cookie.
func SessionToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetSessionCookie stores the session token in an HttpOnly cookie.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
