package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error is the canonical API error returned by every Voxa surface.
type Error struct {
	Type       ErrorType         `json:"type"`
	Message    string            `json:"message"`
	Code       int               `json:"code,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	RetryAfter *int              `json:"retry_after,omitempty"`
	Details    []ValidationError `json:"details,omitempty"`
}

// ValidationError describes one invalid field in a 422 response.
type ValidationError struct {
	Loc     []string `json:"loc"`
	Message string   `json:"msg"`
	Kind    string   `json:"type,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s (code: %d)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrValidation     ErrorType = "validation_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrConnection     ErrorType = "connection_error"
)

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return &Error{
		Type:    ErrInvalidRequest,
		Message: message,
	}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return &Error{
		Type:    ErrNotFound,
		Message: message,
	}
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(message string, retryAfter int) *Error {
	return &Error{
		Type:       ErrRateLimit,
		Message:    message,
		RetryAfter: &retryAfter,
	}
}

// NewAPIError creates a generic API error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// NewRemoteError creates an error from a remote error envelope (message + code).
func NewRemoteError(message string, code int) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
		Code:    code,
	}
}

// IsRetryable returns true if the error is retryable by a caller-level policy.
// This SDK never retries anything itself.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrRateLimit:
		return true
	case ErrAPI:
		return e.Code == 0 || e.Code >= 500
	default:
		return false
	}
}

type errorResponseBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Detail  []ValidationError `json:"detail"`
}

// ErrorFromResponse maps a non-2xx HTTP response to the canonical taxonomy:
// 401/403 auth, 404 not-found, 422 validation with field details, 429
// rate-limit with retry-after, 5xx api, everything else invalid request.
func ErrorFromResponse(resp *http.Response, body []byte) *Error {
	var parsed errorResponseBody
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Message
	if message == "" {
		message = parsed.Error
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	e := &Error{
		Message:   message,
		Code:      resp.StatusCode,
		RequestID: resp.Header.Get("X-Request-Id"),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		e.Type = ErrAuthentication
	case resp.StatusCode == http.StatusForbidden:
		e.Type = ErrPermission
	case resp.StatusCode == http.StatusNotFound:
		e.Type = ErrNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity:
		e.Type = ErrValidation
		e.Details = parsed.Detail
	case resp.StatusCode == http.StatusTooManyRequests:
		e.Type = ErrRateLimit
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			e.RetryAfter = &secs
		}
	case resp.StatusCode >= 500:
		e.Type = ErrAPI
	default:
		e.Type = ErrInvalidRequest
	}
	return e
}
