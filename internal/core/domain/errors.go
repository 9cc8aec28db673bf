package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownProvider indicates the provider ID is not in the catalog.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotConfigured indicates the provider has no client credentials.
	ErrProviderNotConfigured = errors.New("provider not configured")

	// Authentication Errors.

	// ErrAuthRequired indicates no token is held for the provider.
	// Callers must prompt the user to connect.
	ErrAuthRequired = errors.New("authentication required")

	// ErrTokenRejected indicates the provider kept refusing the access token
	// after a refresh. The user has to reconnect.
	ErrTokenRejected = errors.New("access token rejected by provider")

	// ErrDirectoryClosed indicates the session directory has been shut down.
	ErrDirectoryClosed = errors.New("session directory closed")

	// ErrAttemptCancelled indicates an authorization attempt was abandoned
	// because the provider was disconnected or reconnected while it was in
	// flight.
	ErrAttemptCancelled = errors.New("authorization attempt cancelled")
)

// AuthErrorKind classifies failures of the authorization and token flows.
type AuthErrorKind string

// Authorization failure kinds.
const (
	// AuthErrorTransport is a network or socket failure (including a busy
	// redirect port). Retryable.
	AuthErrorTransport AuthErrorKind = "transport"
	// AuthErrorTimeout means no redirect arrived before the listen deadline.
	AuthErrorTimeout AuthErrorKind = "timeout"
	// AuthErrorProviderDenied means the user or provider refused consent.
	AuthErrorProviderDenied AuthErrorKind = "provider_denied"
	// AuthErrorMalformed means the redirect carried neither a code nor an error,
	// or carried the wrong state.
	AuthErrorMalformed AuthErrorKind = "malformed"
	// AuthErrorRejected means the token endpoint refused the request.
	AuthErrorRejected AuthErrorKind = "rejected"
	// AuthErrorMalformedResponse means the token endpoint answered 2xx without
	// a usable access token.
	AuthErrorMalformedResponse AuthErrorKind = "malformed_response"
	// AuthErrorRefreshRevoked means the refresh token no longer works.
	// A full reconnect is required.
	AuthErrorRefreshRevoked AuthErrorKind = "refresh_revoked"
)

// String returns the string representation.
func (k AuthErrorKind) String() string {
	return string(k)
}

// Retryable reports whether the same operation may succeed if repeated
// without user involvement.
func (k AuthErrorKind) Retryable() bool {
	return k == AuthErrorTransport
}

// AuthError is a classified failure of a connect or refresh operation.
type AuthError struct {
	Kind       AuthErrorKind
	Provider   ProviderID
	StatusCode int
	Body       string
	Err        error
}

// NewAuthError creates an AuthError of the given kind wrapping err.
func NewAuthError(kind AuthErrorKind, provider ProviderID, err error) *AuthError {
	return &AuthError{Kind: kind, Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	msg := string(e.Kind)
	if e.Provider != "" {
		msg = fmt.Sprintf("%s: %s", e.Provider, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches another *AuthError by kind, so errors.Is(err, &AuthError{Kind: k})
// works without inspecting the rest of the payload.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Provider == "" || t.Provider == e.Provider)
}

// AuthErrorKindOf returns the kind of the first AuthError in err's chain.
func AuthErrorKindOf(err error) (AuthErrorKind, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}

// IsAuthErrorKind reports whether err carries an AuthError of the given kind.
func IsAuthErrorKind(err error, kind AuthErrorKind) bool {
	k, ok := AuthErrorKindOf(err)
	return ok && k == kind
}
