package services

import (
	"sort"

	"golang.org/x/oauth2"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// oauthConfig maps a provider onto an x/oauth2 client configuration.
func oauthConfig(p *domain.Provider, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURI,
		Scopes:      p.Scopes,
	}
}

// BuildAuthURL returns the consent URL for a provider: client id, redirect
// URI, response_type=code, scopes, state and the provider's extra
// authorization parameters.
func BuildAuthURL(p *domain.Provider, redirectURI, state string) string {
	keys := make([]string, 0, len(p.AuthParams))
	for k := range p.AuthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	opts := make([]oauth2.AuthCodeOption, 0, len(keys))
	for _, k := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(k, p.AuthParams[k]))
	}
	return oauthConfig(p, redirectURI).AuthCodeURL(state, opts...)
}
