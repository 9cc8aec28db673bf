package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
)

// Ensure AccountLookup implements the interface.
var _ driving.AccountLookup = (*AccountLookup)(nil)

// ClientResolver resolves an account through an authenticating client.
type ClientResolver interface {
	ResolveWithClient(ctx context.Context, provider domain.ProviderID, client *http.Client) (string, error)
}

// AccountLookup queries the provider's user endpoint through a Transport,
// so an expired token is refreshed and a revoked one is reported as
// domain.ErrTokenRejected.
type AccountLookup struct {
	tokens   TokenProvider
	resolver ClientResolver
	timeout  time.Duration
}

// NewAccountLookup creates an AccountLookup.
func NewAccountLookup(tokens TokenProvider, resolver ClientResolver, timeout time.Duration) *AccountLookup {
	return &AccountLookup{tokens: tokens, resolver: resolver, timeout: timeout}
}

// Lookup implements driving.AccountLookup.
func (a *AccountLookup) Lookup(ctx context.Context, provider domain.ProviderID) (string, error) {
	// Fail before any request when nothing is held.
	if _, err := a.tokens.CurrentToken(ctx, provider); err != nil {
		return "", err
	}
	account, err := a.resolver.ResolveWithClient(ctx, provider, NewHTTPClient(a.tokens, provider, a.timeout))
	if IsUnauthorized(err) {
		// The transport already refreshed once; the grant itself is gone.
		return "", fmt.Errorf("%w: %s: %w", domain.ErrTokenRejected, provider, err)
	}
	return account, err
}
