package invitesdk

import (
	"strings"
	"time"
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// ValidationErrorResponse carries per-field messages for rejected input.
type ValidationErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecks reports individual dependency status for /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
	Redis    string `json:"redis,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// BootstrapRequest creates the first account.
type BootstrapRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns field errors, or nil when the request is acceptable.
func (r BootstrapRequest) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Username) == "" {
		errs["username"] = "required"
	}
	if !strings.Contains(r.Email, "@") {
		errs["email"] = "must be an email address"
	}
	if len(r.Password) < 8 {
		errs["password"] = "must be at least 8 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// BootstrapResponse identifies the first account and gives it a session.
type BootstrapResponse struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// InvitationRequest mints an invitation. WindowDays <= 0 uses the server's
// default.
type InvitationRequest struct {
	Username   string
	Email      string
	WindowDays int
}

// InvitationResponse is returned when an invitation is minted.
type InvitationResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// InvitationSummary is one row of the invitation listing. Codes are not
// listed.
type InvitationSummary struct {
	ID             string    `json:"id"`
	ToUserID       string    `json:"to_user_id"`
	ToUsername     string    `json:"to_username"`
	FromUserID     string    `json:"from_user_id"`
	DateInvited    time.Time `json:"date_invited"`
	ExpirationDate time.Time `json:"expiration_date"`
	Expired        bool      `json:"expired"`
}

type InvitationListResponse struct {
	Invitations []InvitationSummary `json:"invitations"`
}

type PendingInvitationResponse struct {
	UserID  string `json:"user_id"`
	Pending bool   `json:"pending"`
}

// RedeemResult is what a successful redemption returns to a browser: a
// session cookie and where to go next.
type RedeemResult struct {
	SessionToken string
	RedirectURL  string
}
