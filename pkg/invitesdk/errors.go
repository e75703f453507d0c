package invitesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes the server uses in ErrorResponse.Error.
const (
	ErrorCodeInvalidRequest  = "invalid_request"
	ErrorCodeUnauthorized    = "unauthorized"
	ErrorCodeLoginRequired   = "login_required"
	ErrorCodeInvalidSession  = "invalid_session"
	ErrorCodeNotFound        = "not_found"
	ErrorCodeExpired         = "expired"
	ErrorCodeConflict        = "conflict"
	ErrorCodeRateLimited     = "rate_limit_exceeded"
	ErrorCodeServerError     = "server_error"
	ErrorCodeValidationError = "validation_error"
)

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	Details     map[string]string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("invite api: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("invite api: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// parseErrorResponse turns an error body into an *APIError. Bodies that are
// not JSON still produce an error carrying the status.
func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: ErrorCodeServerError}

	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		apiErr.Code = er.Error
		apiErr.Description = er.ErrorDescription
		return apiErr
	}

	var ve ValidationErrorResponse
	if err := json.Unmarshal(body, &ve); err == nil && ve.Code != "" {
		apiErr.Code = ve.Code
		apiErr.Description = ve.Message
		apiErr.Details = ve.Details
		return apiErr
	}

	apiErr.Description = http.StatusText(resp.StatusCode)
	return apiErr
}
