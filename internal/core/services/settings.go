package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyRedirectHost    = "redirect.host"
	keyRedirectPort    = "redirect.port"
	keyRedirectPath    = "redirect.path"
	keyRedirectTimeout = "redirect.timeout"
	keyHTTPTimeout     = "http.timeout"
	keyRefreshSkew     = "refresh.skew"
	keyRefreshInterval = "refresh.min_interval"
	keyTokensBackend   = "tokens.backend"
	keyTokensPath      = "tokens.path"
	keyTokensWatch     = "tokens.watch"
)

// providerKey returns the config key for a per-provider setting,
// e.g. providers.google.client_id.
func providerKey(id domain.ProviderID, field string) string {
	return "providers." + string(id) + "." + field
}

// SettingsService manages connection manager settings stored in the config
// file, with client credentials overridable from the environment.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// Environment overrides are read with os.LookupEnv.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Useful for testing.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Redirect: domain.RedirectSettings{
			Host:    s.getString(keyRedirectHost, defaults.Redirect.Host),
			Port:    s.getInt(keyRedirectPort, defaults.Redirect.Port),
			Path:    s.getString(keyRedirectPath, defaults.Redirect.Path),
			Timeout: s.getDuration(keyRedirectTimeout, defaults.Redirect.Timeout),
		},
		HTTPTimeout: s.getDuration(keyHTTPTimeout, defaults.HTTPTimeout),
		Refresh: domain.RefreshSettings{
			Skew:        s.getDuration(keyRefreshSkew, defaults.Refresh.Skew),
			MinInterval: s.getDuration(keyRefreshInterval, defaults.Refresh.MinInterval),
		},
		Tokens: domain.TokenSettings{
			Backend: s.getTokenBackend(defaults.Tokens.Backend),
			Path:    s.configStore.GetString(keyTokensPath),
			Watch:   s.getBool(keyTokensWatch, defaults.Tokens.Watch),
		},
		Providers: make(map[domain.ProviderID]domain.ProviderCredentials),
	}

	if !strings.HasPrefix(settings.Redirect.Path, "/") {
		settings.Redirect.Path = "/" + settings.Redirect.Path
	}

	for _, id := range domain.KnownProviders {
		creds := domain.ProviderCredentials{
			ClientID:     s.configStore.GetString(providerKey(id, "client_id")),
			ClientSecret: s.configStore.GetString(providerKey(id, "client_secret")),
			Scopes:       s.configStore.GetStringSlice(providerKey(id, "scopes")),
		}
		prefix := id.EnvPrefix()
		if v, ok := s.lookupEnv(prefix + "_CLIENT_ID"); ok && v != "" {
			creds.ClientID = v
		}
		if v, ok := s.lookupEnv(prefix + "_CLIENT_SECRET"); ok && v != "" {
			creds.ClientSecret = v
		}
		settings.Providers[id] = creds
	}

	return settings, nil
}

// SetCredentials stores the OAuth client registration for a provider.
func (s *SettingsService) SetCredentials(provider domain.ProviderID, clientID, clientSecret string) error {
	if _, err := domain.ParseProviderID(string(provider)); err != nil {
		return err
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: client id and secret are required", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(providerKey(provider, "client_id"), clientID); err != nil {
		return fmt.Errorf("save %s client_id: %w", provider, err)
	}
	if err := s.configStore.Set(providerKey(provider, "client_secret"), clientSecret); err != nil {
		return fmt.Errorf("save %s client_secret: %w", provider, err)
	}
	return nil
}

// SetTokenBackend selects where tokens are persisted.
func (s *SettingsService) SetTokenBackend(backend domain.TokenBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: token backend %q", domain.ErrInvalidInput, backend)
	}
	if err := s.configStore.Set(keyTokensBackend, backend.String()); err != nil {
		return fmt.Errorf("save token backend: %w", err)
	}
	return nil
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if settings.Redirect.Port <= 0 || settings.Redirect.Port > 65535 {
		return fmt.Errorf("%w: redirect port %d", domain.ErrInvalidInput, settings.Redirect.Port)
	}
	if settings.Redirect.Timeout <= 0 {
		return fmt.Errorf("%w: redirect timeout must be positive", domain.ErrInvalidInput)
	}
	if settings.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http timeout must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val := s.configStore.GetInt(key); val != 0 {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration reads a duration string such as "90s" or "2m", or a bare
// integer number of seconds. Unparseable values fall back to the default.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if secs := s.configStore.GetInt(key); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getTokenBackend(defaultVal domain.TokenBackend) domain.TokenBackend {
	backend := domain.TokenBackend(s.configStore.GetString(keyTokensBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
