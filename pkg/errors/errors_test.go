package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Creation(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewValidationError("test validation error", cause)

	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "test validation error", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.NotNil(t, err.Context)
}

func TestDomainError_WithContext(t *testing.T) {
	err := NewRegistryError("test error", nil)

	err = err.WithContext("service", "memcache")
	err = err.WithContext("port", 11211)

	assert.Equal(t, "memcache", err.Context["service"])
	assert.Equal(t, 11211, err.Context["port"])
}

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewValidationError("test message", nil),
			expected: "validation: test message",
		},
		{
			name:     "error with cause",
			error:    NewCommandLaunchError("test message", errors.New("cause")),
			expected: "command_launch: test message: cause",
		},
		{
			name:     "timeout error",
			error:    NewCommandTimeoutError("check exceeded 90s", nil),
			expected: "command_timeout: check exceeded 90s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	launchErr := NewCommandLaunchError("launch error", nil)
	timeoutErr := NewCommandTimeoutError("timeout error", nil)
	registryErr := NewRegistryError("registry error", nil)

	assert.True(t, IsCommandLaunchError(launchErr))
	assert.False(t, IsCommandLaunchError(timeoutErr))

	assert.True(t, IsCommandTimeoutError(timeoutErr))
	assert.False(t, IsCommandTimeoutError(registryErr))

	assert.True(t, IsRegistryError(registryErr))
	assert.False(t, IsRegistryError(launchErr))
}

func TestDomainError_TypeChecking_Wrapped(t *testing.T) {
	inner := NewCommandExitError("exit code 2", nil)
	wrapped := fmt.Errorf("check failed: %w", inner)

	assert.True(t, IsCommandExitError(wrapped))
	assert.False(t, IsCommandTimeoutError(wrapped))
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRegistryError("could not update path", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}
