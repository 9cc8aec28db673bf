package driven

import (
	"context"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// TokenStore holds the current token pair per provider.
// Every method is safe for concurrent use. An entry is either fully absent
// or fully populated; readers never observe a partially written pair.
type TokenStore interface {
	// Get returns a copy of the provider's pair.
	Get(provider domain.ProviderID) (domain.TokenPair, bool)

	// Put replaces the provider's pair as a whole.
	Put(provider domain.ProviderID, pair domain.TokenPair)

	// Clear removes the provider's pair.
	Clear(provider domain.ProviderID)

	// ClearAll removes every pair.
	ClearAll()

	// Snapshot returns a copy of all pairs.
	Snapshot() map[domain.ProviderID]domain.TokenPair

	// Persist writes the full mapping to durable storage.
	Persist(ctx context.Context) error

	// Load replaces the in-memory mapping with durable storage.
	// Missing, empty or corrupt storage results in an empty store.
	Load(ctx context.Context) error
}

// TokenPersister is durable storage for the whole token mapping.
type TokenPersister interface {
	// Save replaces the stored mapping.
	Save(ctx context.Context, tokens map[domain.ProviderID]domain.TokenPair) error

	// Load returns the stored mapping. Missing storage yields an empty map
	// and no error.
	Load(ctx context.Context) (map[domain.ProviderID]domain.TokenPair, error)

	// Location describes where tokens are kept (file path, DSN).
	Location() string

	// Close releases any resources.
	Close() error
}

// TokenWatcher reports changes made to persisted tokens by other processes.
type TokenWatcher interface {
	// Watch calls onChange after the stored tokens change. Blocks until ctx
	// is cancelled.
	Watch(ctx context.Context, onChange func()) error
}
