package domain

import "strings"

// ProviderID identifies a remote account provider.
type ProviderID string

const (
	// ProviderGoogle is the mail suite (Gmail, Calendar, Tasks, Drive, Contacts).
	ProviderGoogle ProviderID = "google"
	// ProviderDiscord is the chat network.
	ProviderDiscord ProviderID = "discord"
	// ProviderGitHub is the code hosting account.
	ProviderGitHub ProviderID = "github"
)

// KnownProviders lists every provider the connection manager can drive,
// in display order.
var KnownProviders = []ProviderID{ProviderGoogle, ProviderDiscord, ProviderGitHub}

// ParseProviderID converts user input into a known ProviderID.
func ParseProviderID(s string) (ProviderID, error) {
	id := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range KnownProviders {
		if id == known {
			return id, nil
		}
	}
	return "", ErrUnknownProvider
}

// String returns the string representation.
func (p ProviderID) String() string {
	return string(p)
}

// EnvPrefix returns the environment variable prefix used for this
// provider's client credentials (e.g. GOOGLE for GOOGLE_CLIENT_ID).
func (p ProviderID) EnvPrefix() string {
	return strings.ToUpper(string(p))
}

// Provider is an immutable description of a remote account provider and
// the OAuth client registered with it.
type Provider struct {
	// ID is the provider identity.
	ID ProviderID
	// Name is the human-readable display name.
	Name string
	// AuthURL is the authorization (consent) endpoint.
	AuthURL string
	// TokenURL is the token endpoint used for code exchange and refresh.
	TokenURL string
	// Scopes are the OAuth scopes requested at consent time.
	Scopes []string
	// ClientID is the registered OAuth client ID.
	ClientID string
	// ClientSecret is the registered OAuth client secret.
	ClientSecret string
	// AuthParams are extra authorization URL parameters, such as the
	// offline-access and forced-consent directives.
	AuthParams map[string]string
	// SupportsRefresh reports whether the provider issues refresh tokens.
	SupportsRefresh bool
	// SetupHint tells the user where to register the OAuth client.
	SetupHint string
}

// IsConfigured returns true if client credentials are present.
func (p *Provider) IsConfigured() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// ScopeString returns the scopes joined with spaces, as sent on the wire.
func (p *Provider) ScopeString() string {
	return strings.Join(p.Scopes, " ")
}
