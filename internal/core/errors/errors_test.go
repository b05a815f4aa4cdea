package errors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/lorrc/devexchange/internal/core/errors"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusOK, nil},
		{http.StatusNoContent, nil},
		{http.StatusUnauthorized, apperrors.ErrSessionExpired},
		{http.StatusForbidden, apperrors.ErrForbidden},
		{http.StatusNotFound, apperrors.ErrResourceNotFound},
		{http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{http.StatusUnprocessableEntity, apperrors.ErrBadRequest},
		{http.StatusInternalServerError, apperrors.ErrTransientNetwork},
		{http.StatusBadGateway, apperrors.ErrTransientNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, apperrors.FromStatus(tt.status))
		})
	}
}

func TestRequestError(t *testing.T) {
	err := apperrors.NewRequestError(http.MethodGet, "/tickets/T1", http.StatusNotFound, "Not Found")

	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, apperrors.IsSessionExpired(err))
	assert.Contains(t, err.Error(), "GET /tickets/T1: status 404: Not Found")

	wrapped := fmt.Errorf("load ticket: %w", apperrors.NewRequestError(http.MethodGet, "/users/me", http.StatusUnauthorized, ""))
	assert.True(t, apperrors.IsSessionExpired(wrapped))

	var reqErr *apperrors.RequestError
	assert.True(t, errors.As(wrapped, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)
}

func TestNewTransportError(t *testing.T) {
	err := apperrors.NewTransportError(http.MethodPost, "/upload", errors.New("connection refused"))
	assert.ErrorIs(t, err, apperrors.ErrTransientNetwork)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestValidationErrors(t *testing.T) {
	v := apperrors.NewValidationErrors()
	assert.False(t, v.HasErrors())

	v.Add("title", "This field is required")
	v.Add("priority", "Must be one of critical, high, medium, low")

	assert.True(t, v.HasErrors())
	assert.ErrorIs(t, v, apperrors.ErrBadRequest)
	assert.Equal(t, "validation failed: priority: Must be one of critical, high, medium, low; title: This field is required", v.Error())
}
