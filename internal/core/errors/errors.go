package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Client-side error taxonomy.
var (
	// ErrSessionExpired is raised once at the session boundary when the
	// backend rejects the credential. Callers stop the current operation
	// and do not log it.
	ErrSessionExpired = errors.New("session expired")

	// ErrResourceNotFound means the requested ticket or user does not exist.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrTransientNetwork covers every other failed request. Input is kept
	// and the user may retry by hand.
	ErrTransientNetwork = errors.New("transient network failure")

	// ErrLiveChannelUnavailable means the push connection could not be
	// established or dropped. Views keep working without live updates.
	ErrLiveChannelUnavailable = errors.New("live channel unavailable")

	// Authentication & Authorization
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("action forbidden")
	ErrNotAuthenticated   = errors.New("not authenticated")

	// View lifecycle
	ErrNotReady       = errors.New("view is not ready")
	ErrAlreadyMounted = errors.New("view already mounted")

	// Validation
	ErrEmptyComment            = errors.New("comment has no content and no attachment")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrBadRequest              = errors.New("bad request")

	// Generic
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RequestError describes a failed REST call. It unwraps to the taxonomy
// sentinel chosen from the status code.
type RequestError struct {
	Err        error
	StatusCode int
	Method     string
	Path       string
	Detail     string
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Method, e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + ": " + e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// FromStatus maps an HTTP status to a taxonomy sentinel. It returns nil for
// 2xx and 3xx codes.
func FromStatus(status int) error {
	switch {
	case status < 400:
		return nil
	case status == http.StatusUnauthorized:
		return ErrSessionExpired
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrResourceNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	default:
		return ErrTransientNetwork
	}
}

// NewRequestError builds a RequestError for a response status.
func NewRequestError(method, path string, status int, detail string) *RequestError {
	err := FromStatus(status)
	if err == nil {
		err = ErrTransientNetwork
	}
	return &RequestError{
		Err:        err,
		StatusCode: status,
		Method:     method,
		Path:       path,
		Detail:     detail,
	}
}

// NewTransportError wraps a failure that happened before any response.
func NewTransportError(method, path string, cause error) *RequestError {
	return &RequestError{
		Err:    fmt.Errorf("%w: %v", ErrTransientNetwork, cause),
		Method: method,
		Path:   path,
	}
}

// IsSessionExpired reports whether err is, or wraps, ErrSessionExpired.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}

// IsNotFound reports whether err is, or wraps, ErrResourceNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound)
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(v.Errors[field], ", "))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func (v *ValidationErrors) Unwrap() error {
	return ErrBadRequest
}
