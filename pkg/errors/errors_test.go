package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code     int
		expected ErrorType
	}{
		{http.StatusOK, ""},
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeForbidden},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusBadGateway, ErrorTypeServerError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeForStatus(tt.code))
		})
	}
}

func TestTransientAndForbidden(t *testing.T) {
	rateLimited := New(ErrorTypeRateLimit, 429, "slow down")
	forbidden := New(ErrorTypeForbidden, 403, "suspended account")

	assert.True(t, IsTransient(rateLimited))
	assert.True(t, IsTransient(fmt.Errorf("page 2: %w", rateLimited)))
	assert.False(t, IsTransient(forbidden))
	assert.False(t, IsTransient(fmt.Errorf("plain error")))

	assert.True(t, IsForbidden(fmt.Errorf("wrapped: %w", forbidden)))
	assert.False(t, IsForbidden(rateLimited))
}

func TestRetryableStatuses(t *testing.T) {
	assert.True(t, IsRetryable(TypeForStatus(http.StatusServiceUnavailable)))
	assert.True(t, IsRetryable(TypeForStatus(http.StatusTooManyRequests)))
	assert.False(t, IsRetryable(TypeForStatus(http.StatusForbidden)))
	assert.False(t, IsRetryable(TypeForStatus(http.StatusNotFound)))
}

func TestErrorMessage(t *testing.T) {
	err := New(ErrorTypeServerError, 500, "upstream %s", "down")
	assert.Equal(t, "server_error error (code 500): upstream down", err.Error())
}
