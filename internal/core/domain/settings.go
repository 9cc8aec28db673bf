package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const unknownDescription = "Unknown"

// TokenBackend selects where the token store is persisted.
type TokenBackend string

// Available token backends.
const (
	// TokenBackendFile persists tokens as a JSON file.
	TokenBackendFile TokenBackend = "file"
	// TokenBackendSQLite persists tokens in a SQLite database.
	TokenBackendSQLite TokenBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b TokenBackend) IsValid() bool {
	switch b {
	case TokenBackendFile, TokenBackendSQLite:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b TokenBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b TokenBackend) Description() string {
	switch b {
	case TokenBackendFile:
		return "JSON file"
	case TokenBackendSQLite:
		return "SQLite database"
	default:
		return unknownDescription
	}
}

// RedirectSettings configures the loopback redirect listener.
type RedirectSettings struct {
	Host    string        `json:"host"`
	Port    int           `json:"port"`
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

// Addr returns the host:port the listener binds.
func (r RedirectSettings) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// URI returns the redirect URI registered with providers. The same value is
// used for the authorization URL and the code exchange.
func (r RedirectSettings) URI() string {
	return fmt.Sprintf("http://%s%s", r.Addr(), r.Path)
}

// RefreshSettings configures just-in-time token refresh.
type RefreshSettings struct {
	// Skew treats a token as stale this long before its expiry.
	Skew time.Duration `json:"skew"`
	// MinInterval is the minimum gap between refreshes of one provider.
	// Zero disables throttling.
	MinInterval time.Duration `json:"min_interval"`
}

// TokenSettings configures token persistence.
type TokenSettings struct {
	Backend TokenBackend `json:"backend"`
	// Path is the token file or database directory. Empty uses the default
	// location under the config directory.
	Path string `json:"path"`
	// Watch reloads tokens when another process changes the token file.
	Watch bool `json:"watch"`
}

// ProviderCredentials are the OAuth client registration for one provider.
type ProviderCredentials struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
}

// Settings holds all connection manager configuration.
type Settings struct {
	Redirect    RedirectSettings                   `json:"redirect"`
	HTTPTimeout time.Duration                      `json:"http_timeout"`
	Refresh     RefreshSettings                    `json:"refresh"`
	Tokens      TokenSettings                      `json:"tokens"`
	Providers   map[ProviderID]ProviderCredentials `json:"providers"`
}

// DefaultSettings returns the default configuration. The redirect URI
// matches the one registered with the providers.
func DefaultSettings() Settings {
	return Settings{
		Redirect: RedirectSettings{
			Host:    "localhost",
			Port:    8080,
			Path:    "/callback",
			Timeout: 120 * time.Second,
		},
		HTTPTimeout: 30 * time.Second,
		Refresh: RefreshSettings{
			Skew:        60 * time.Second,
			MinInterval: 2 * time.Second,
		},
		Tokens: TokenSettings{
			Backend: TokenBackendFile,
			Watch:   true,
		},
		Providers: make(map[ProviderID]ProviderCredentials),
	}
}

// Credentials returns the client registration for a provider.
func (s Settings) Credentials(id ProviderID) ProviderCredentials {
	if s.Providers == nil {
		return ProviderCredentials{}
	}
	return s.Providers[id]
}
