package driving

import (
	"context"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// AccountLookup asks a provider which account the held token belongs to.
type AccountLookup interface {
	// Lookup returns the account identifier (email, login, username).
	// Returns domain.ErrAuthRequired when the provider is not connected.
	Lookup(ctx context.Context, provider domain.ProviderID) (string, error)
}
