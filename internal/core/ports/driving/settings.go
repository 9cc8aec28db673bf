package driving

import "github.com/unifiedhub/unifiedhub/internal/core/domain"

// SettingsService manages connection manager settings.
type SettingsService interface {
	// Get retrieves current settings, with environment overrides applied.
	Get() (*domain.Settings, error)

	// SetCredentials stores the OAuth client registration for a provider.
	SetCredentials(provider domain.ProviderID, clientID, clientSecret string) error

	// SetTokenBackend selects where tokens are persisted.
	SetTokenBackend(backend domain.TokenBackend) error

	// Validate checks if current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
