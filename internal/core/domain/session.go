package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle position of one provider's connection.
type SessionState string

// Session states.
const (
	// StateDisconnected means no token is held and nothing is in flight.
	StateDisconnected SessionState = "disconnected"
	// StateAuthorizing means the browser consent step is awaiting a redirect.
	StateAuthorizing SessionState = "authorizing"
	// StateExchanging means an authorization code is being traded for tokens.
	StateExchanging SessionState = "exchanging"
	// StateConnected means a usable token pair is held.
	StateConnected SessionState = "connected"
	// StateRefreshing means a stale access token is being renewed.
	StateRefreshing SessionState = "refreshing"
	// StateFailed means the last operation failed terminally; reconnect required.
	StateFailed SessionState = "failed"
)

// String returns the string representation.
func (s SessionState) String() string {
	return string(s)
}

// InFlight returns true while an authorization or token operation is running.
func (s SessionState) InFlight() bool {
	return s == StateAuthorizing || s == StateExchanging || s == StateRefreshing
}

// Description returns a human-readable label for the state.
func (s SessionState) Description() string {
	switch s {
	case StateDisconnected:
		return "Not connected"
	case StateAuthorizing:
		return "Waiting for browser authorization"
	case StateExchanging:
		return "Exchanging authorization code"
	case StateConnected:
		return "Connected"
	case StateRefreshing:
		return "Refreshing access token"
	case StateFailed:
		return "Connection failed"
	default:
		return "Unknown"
	}
}

// SessionStatus is a point-in-time snapshot of a provider session.
type SessionStatus struct {
	Provider ProviderID   `json:"provider"`
	State    SessionState `json:"state"`
	// Account identifies the connected account (email, username) when known.
	Account string `json:"account,omitempty"`
	// Expiry is the current access token's expiry. Zero means unknown.
	Expiry time.Time `json:"expiry,omitempty"`
	// LastError is the most recent failure, cleared on success.
	LastError string `json:"last_error,omitempty"`
	// ErrorKind classifies LastError.
	ErrorKind AuthErrorKind `json:"error_kind,omitempty"`
	// UpdatedAt is when the session last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsConnected returns true if a usable token is held.
func (s SessionStatus) IsConnected() bool {
	return s.State == StateConnected || s.State == StateRefreshing
}

// Message returns the human-readable status line shown to the user.
func (s SessionStatus) Message() string {
	switch s.State {
	case StateConnected, StateRefreshing:
		if s.Account != "" {
			return fmt.Sprintf("%s as %s", s.State.Description(), s.Account)
		}
		return s.State.Description()
	case StateFailed:
		switch s.ErrorKind {
		case AuthErrorRefreshRevoked:
			return "Session expired. Please reconnect"
		case AuthErrorRejected, AuthErrorMalformedResponse:
			return "Provider rejected the authorization. Please reconnect"
		}
		return s.State.Description()
	case StateDisconnected:
		switch s.ErrorKind {
		case AuthErrorTimeout:
			return "Authorization timed out"
		case AuthErrorProviderDenied:
			return "Authorization was denied"
		case AuthErrorMalformed:
			return "Authorization redirect was invalid"
		case AuthErrorTransport:
			return "Could not reach the provider"
		}
		return s.State.Description()
	default:
		return s.State.Description()
	}
}
