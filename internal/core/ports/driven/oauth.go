package driven

import (
	"context"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// RedirectListener captures one authorization redirect on the loopback
// callback endpoint.
type RedirectListener interface {
	// ListenOnce binds the redirect port, waits for a single callback and
	// releases the port before returning.
	// ready, if non-nil, is called once the port is bound and before any
	// callback can be accepted; the consent URL should be opened from it.
	// When expectedState is non-empty, a callback carrying a different
	// state is rejected as malformed.
	// Errors are *domain.AuthError of kind Transport (bind failure),
	// Timeout, ProviderDenied or Malformed.
	ListenOnce(ctx context.Context, expectedState string, ready func()) (string, error)

	// RedirectURI returns the exact URI providers redirect to.
	RedirectURI() string
}

// TokenExchanger talks to a provider's token endpoint.
// Implementations perform exactly one request per call and never retry.
type TokenExchanger interface {
	// ExchangeCode trades an authorization code for a token pair.
	ExchangeCode(ctx context.Context, provider *domain.Provider, code string) (domain.TokenPair, error)

	// Refresh obtains a new token pair from a refresh token.
	// The returned pair's RefreshToken is empty when the provider did not
	// issue a new one.
	Refresh(ctx context.Context, provider *domain.Provider, refreshToken string) (domain.TokenPair, error)
}

// BrowserOpener opens URLs in the user's browser.
type BrowserOpener interface {
	Open(url string) error
}

// IdentityResolver looks up the account behind an access token.
type IdentityResolver interface {
	// Resolve returns a display identifier (email, username) for the account.
	// Returns domain.ErrUnknownProvider if the provider is not supported.
	Resolve(ctx context.Context, provider domain.ProviderID, accessToken string) (string, error)
}
