package services

import (
	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
)

// providerCatalog holds the static registration of every supported provider.
// Client credentials are applied per registry from settings.
var providerCatalog = map[domain.ProviderID]domain.Provider{
	domain.ProviderGoogle: {
		ID:       domain.ProviderGoogle,
		Name:     "Google",
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: "https://oauth2.googleapis.com/token",
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.readonly",
			"https://www.googleapis.com/auth/gmail.labels",
			"https://www.googleapis.com/auth/gmail.send",
			"https://www.googleapis.com/auth/calendar",
			"https://www.googleapis.com/auth/tasks",
			"https://www.googleapis.com/auth/drive.metadata.readonly",
			"https://www.googleapis.com/auth/drive.readonly",
			"https://www.googleapis.com/auth/userinfo.profile",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/youtube.readonly",
			"https://www.googleapis.com/auth/contacts.readonly",
		},
		// Without offline access and forced consent Google omits the
		// refresh token on re-authorization.
		AuthParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
		SupportsRefresh: true,
		SetupHint:       "https://console.cloud.google.com/apis/credentials",
	},
	domain.ProviderDiscord: {
		ID:       domain.ProviderDiscord,
		Name:     "Discord",
		AuthURL:  "https://discord.com/api/oauth2/authorize",
		TokenURL: "https://discord.com/api/oauth2/token",
		Scopes: []string{
			"identify",
			"guilds",
			"applications.commands",
			"applications.builds.read",
		},
		SupportsRefresh: true,
		SetupHint:       "https://discord.com/developers/applications",
	},
	domain.ProviderGitHub: {
		ID:              domain.ProviderGitHub,
		Name:            "GitHub",
		AuthURL:         "https://github.com/login/oauth/authorize",
		TokenURL:        "https://github.com/login/oauth/access_token",
		Scopes:          []string{"repo", "read:user", "user:email"},
		SupportsRefresh: false,
		SetupHint:       "https://github.com/settings/developers",
	},
}

// ProviderRegistry provides the supported providers with client
// credentials applied from settings.
type ProviderRegistry struct {
	credentials map[domain.ProviderID]domain.ProviderCredentials
}

// Ensure ProviderRegistry implements the interface.
var _ driving.ProviderRegistry = (*ProviderRegistry)(nil)

// NewProviderRegistry creates a new ProviderRegistry.
// settings may be nil, in which case no provider is configured.
func NewProviderRegistry(settings *domain.Settings) *ProviderRegistry {
	creds := make(map[domain.ProviderID]domain.ProviderCredentials)
	if settings != nil {
		for id, c := range settings.Providers {
			creds[id] = c
		}
	}
	return &ProviderRegistry{credentials: creds}
}

// IDs returns every provider ID in display order.
func (r *ProviderRegistry) IDs() []domain.ProviderID {
	ids := make([]domain.ProviderID, len(domain.KnownProviders))
	copy(ids, domain.KnownProviders)
	return ids
}

// Get returns a provider with client credentials applied.
func (r *ProviderRegistry) Get(id domain.ProviderID) (*domain.Provider, error) {
	base, ok := providerCatalog[id]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}

	// Return a copy to prevent modification of the catalog
	p := base
	p.Scopes = append([]string(nil), base.Scopes...)
	if base.AuthParams != nil {
		p.AuthParams = make(map[string]string, len(base.AuthParams))
		for k, v := range base.AuthParams {
			p.AuthParams[k] = v
		}
	}

	c := r.credentials[id]
	p.ClientID = c.ClientID
	p.ClientSecret = c.ClientSecret
	if len(c.Scopes) > 0 {
		p.Scopes = append([]string(nil), c.Scopes...)
	}
	return &p, nil
}

// List returns every provider with client credentials applied.
func (r *ProviderRegistry) List() []*domain.Provider {
	providers := make([]*domain.Provider, 0, len(domain.KnownProviders))
	for _, id := range domain.KnownProviders {
		if p, err := r.Get(id); err == nil {
			providers = append(providers, p)
		}
	}
	return providers
}

// IsConfigured checks if client credentials are present for a provider.
func (r *ProviderRegistry) IsConfigured(id domain.ProviderID) bool {
	p, err := r.Get(id)
	if err != nil {
		return false
	}
	return p.IsConfigured()
}
