package driving

import "github.com/unifiedhub/unifiedhub/internal/core/domain"

// ProviderRegistry provides information about the supported providers and
// their OAuth client registrations.
type ProviderRegistry interface {
	// IDs returns every provider ID in display order.
	IDs() []domain.ProviderID

	// Get returns a provider with client credentials applied.
	// Returns domain.ErrUnknownProvider for an unrecognised ID.
	Get(id domain.ProviderID) (*domain.Provider, error)

	// List returns every provider with client credentials applied.
	List() []*domain.Provider

	// IsConfigured checks if client credentials are present for a provider.
	IsConfigured(id domain.ProviderID) bool
}
