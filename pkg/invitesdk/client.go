package invitesdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// SessionCookieName matches the cookie the server sets on redemption.
const SessionCookieName = "invite_session"

// Client talks to the invitation service. A Client with a Token sends it as
// a bearer token on every request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			// Redemption answers with a redirect that callers want to see.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.Token = token
	return &cp
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes a successful response into target, or returns an
// *APIError.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func formHeaders() map[string]string {
	return map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/livez", nil, nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetReadiness checks if the service and its dependencies are ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/readyz", nil, nil)
	if err != nil {
		return nil, err
	}
	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// Bootstrap creates the first account using the server's bootstrap token.
func (c *Client) Bootstrap(ctx context.Context, bootstrapToken string, req BootstrapRequest) (*BootstrapResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/bootstrap", strings.NewReader(string(body)), map[string]string{
		"Content-Type":      "application/json",
		"X-Bootstrap-Token": bootstrapToken,
	})
	if err != nil {
		return nil, err
	}
	var out BootstrapResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvitation mints an invitation. Requires a token.
func (c *Client) CreateInvitation(ctx context.Context, req InvitationRequest) (*InvitationResponse, error) {
	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("email", req.Email)
	if req.WindowDays > 0 {
		form.Set("window_days", strconv.Itoa(req.WindowDays))
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/invitations", strings.NewReader(form.Encode()), formHeaders())
	if err != nil {
		return nil, err
	}
	var out InvitationResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvitations returns every outstanding invitation. Requires a token.
func (c *Client) ListInvitations(ctx context.Context) (*InvitationListResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/invitations", nil, nil)
	if err != nil {
		return nil, err
	}
	var out InvitationListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// HasPendingInvitation reports whether userID has an unused invitation.
// Requires a token.
func (c *Client) HasPendingInvitation(ctx context.Context, userID string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/users/"+url.PathEscape(userID)+"/pending-invitation", nil, nil)
	if err != nil {
		return false, err
	}
	var out PendingInvitationResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return false, err
	}
	return out.Pending, nil
}

// Logout revokes the session behind the client's token.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/logout", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, body)
	}
	return nil
}

// Redeem submits the redemption form the way a browser would. fields holds
// the form inputs, e.g. {"password": {"..."}}.
func (c *Client) Redeem(ctx context.Context, code string, fields url.Values) (*RedeemResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/invite/"+url.PathEscape(code)+"/", strings.NewReader(fields.Encode()), formHeaders())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        redeemErrorCode(resp.StatusCode),
			Description: strings.TrimSpace(string(body)),
		}
	}

	out := &RedeemResult{RedirectURL: resp.Header.Get("Location")}
	for _, ck := range resp.Cookies() {
		if ck.Name == SessionCookieName {
			out.SessionToken = ck.Value
		}
	}
	return out, nil
}

func redeemErrorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusGone:
		return ErrorCodeExpired
	case http.StatusConflict:
		return ErrorCodeConflict
	case http.StatusOK:
		return ErrorCodeValidationError
	case http.StatusTooManyRequests:
		return ErrorCodeRateLimited
	default:
		return ErrorCodeServerError
	}
}
