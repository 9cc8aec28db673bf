package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnknownProvider", ErrUnknownProvider},
		{"ErrProviderNotConfigured", ErrProviderNotConfigured},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrDirectoryClosed", ErrDirectoryClosed},
		{"ErrAttemptCancelled", ErrAttemptCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAuthError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AuthError
		expected string
	}{
		{
			name:     "kind only",
			err:      &AuthError{Kind: AuthErrorTimeout},
			expected: "timeout",
		},
		{
			name:     "with provider",
			err:      &AuthError{Kind: AuthErrorProviderDenied, Provider: ProviderGoogle},
			expected: "google: provider_denied",
		},
		{
			name:     "with status and cause",
			err:      &AuthError{Kind: AuthErrorRejected, Provider: ProviderDiscord, StatusCode: 400, Err: errors.New("invalid_grant")},
			expected: "discord: rejected (status 400): invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAuthError_UnwrapAndIs(t *testing.T) {
	err := fmt.Errorf("connect failed: %w",
		NewAuthError(AuthErrorTimeout, ProviderGoogle, context.DeadlineExceeded))

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, &AuthError{Kind: AuthErrorTimeout}))
	assert.True(t, errors.Is(err, &AuthError{Kind: AuthErrorTimeout, Provider: ProviderGoogle}))
	assert.False(t, errors.Is(err, &AuthError{Kind: AuthErrorTimeout, Provider: ProviderDiscord}))
	assert.False(t, errors.Is(err, &AuthError{Kind: AuthErrorRejected}))

	kind, ok := AuthErrorKindOf(err)
	assert.True(t, ok)
	assert.Equal(t, AuthErrorTimeout, kind)
	assert.True(t, IsAuthErrorKind(err, AuthErrorTimeout))
}

func TestAuthErrorKindOf_NotAuthError(t *testing.T) {
	_, ok := AuthErrorKindOf(ErrAuthRequired)
	assert.False(t, ok)
	assert.False(t, IsAuthErrorKind(nil, AuthErrorTransport))
}

func TestAuthErrorKind_Retryable(t *testing.T) {
	assert.True(t, AuthErrorTransport.Retryable())
	for _, k := range []AuthErrorKind{
		AuthErrorTimeout, AuthErrorProviderDenied, AuthErrorMalformed,
		AuthErrorRejected, AuthErrorMalformedResponse, AuthErrorRefreshRevoked,
	} {
		assert.False(t, k.Retryable(), k.String())
	}
}
