// Package api provides the typed client for the Proofback platform API.
package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for response classification. Callers branch on these with
// errors.Is rather than inspecting status codes.
var (
	// ErrAuthRejected - the server rejected the bearer token (401). The
	// session has already been invalidated by the time callers see this.
	ErrAuthRejected = errors.New("session token rejected by server")

	// ErrForbidden - authenticated but not allowed (403), e.g. a
	// non-administrator calling an admin endpoint.
	ErrForbidden = errors.New("operation not permitted for this account")

	// ErrNotFound - the entity no longer exists on the server (404).
	ErrNotFound = errors.New("not found")

	// ErrBadRequest - the server rejected the request payload (400). The
	// server message is passed through verbatim on the wrapping APIError.
	ErrBadRequest = errors.New("request rejected by server")

	// ErrConflict - the request conflicts with current server state (409).
	ErrConflict = errors.New("conflict with server state")

	// ErrReportUnavailable - report requested for a run that has not
	// finished, or whose artifacts were cleaned up.
	ErrReportUnavailable = errors.New("report not available for this run")
)

// APIError carries the HTTP status and the server-provided message for
// responses that do not map to a sentinel. It wraps the sentinel where one
// applies, so errors.Is still works on the concrete value.
type APIError struct {
	StatusCode int
	Message    string
	wrapped    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.wrapped
}

// newAPIError maps a status code onto the sentinel taxonomy.
func newAPIError(status int, message string) *APIError {
	e := &APIError{StatusCode: status, Message: message}
	switch status {
	case 400:
		e.wrapped = ErrBadRequest
	case 401:
		e.wrapped = ErrAuthRejected
	case 403:
		e.wrapped = ErrForbidden
	case 404:
		e.wrapped = ErrNotFound
	case 409:
		e.wrapped = ErrConflict
	}
	return e
}

// IsAuthError reports whether err means the session is no longer valid.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRejected)
}
