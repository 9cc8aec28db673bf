// Package identity looks up the account behind an access token, so a
// connected session can show who it is connected as.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
)

// Ensure Resolver implements the interface.
var _ driven.IdentityResolver = (*Resolver)(nil)

// ErrUnauthorized indicates the provider rejected the access token.
var ErrUnauthorized = errors.New("identity: unauthorised (invalid token)")

// Endpoints are the API base URLs queried per provider.
type Endpoints struct {
	Google  string
	GitHub  string
	Discord string
}

// DefaultEndpoints returns the production API base URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Google:  "https://www.googleapis.com/",
		GitHub:  "https://api.github.com/",
		Discord: "https://discord.com/api/",
	}
}

// Resolver resolves account identifiers for every known provider.
type Resolver struct {
	endpoints Endpoints
	timeout   time.Duration
}

// NewResolver creates a resolver. timeout bounds each lookup's HTTP client.
func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{endpoints: DefaultEndpoints(), timeout: timeout}
}

// WithEndpoints overrides the API base URLs. Useful for testing.
func (r *Resolver) WithEndpoints(e Endpoints) *Resolver {
	r.endpoints = e
	return r
}

// Resolve returns the email (Google), login (GitHub) or username (Discord).
func (r *Resolver) Resolve(ctx context.Context, provider domain.ProviderID, accessToken string) (string, error) {
	return r.ResolveWithClient(ctx, provider, r.client(ctx, accessToken))
}

// ResolveWithClient is Resolve with a caller-supplied client that already
// authenticates its requests.
func (r *Resolver) ResolveWithClient(ctx context.Context, provider domain.ProviderID, client *http.Client) (string, error) {
	var (
		account string
		err     error
	)
	switch provider {
	case domain.ProviderGoogle:
		account, err = r.google(ctx, client)
	case domain.ProviderGitHub:
		account, err = r.github(ctx, client)
	case domain.ProviderDiscord:
		account, err = r.discord(ctx, client)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownProvider, provider)
	}
	if err != nil {
		return "", fmt.Errorf("resolve %s account: %w", provider, err)
	}
	if account == "" {
		return "", fmt.Errorf("resolve %s account: empty identifier", provider)
	}
	return account, nil
}

// client returns an HTTP client that sends accessToken as a bearer token.
func (r *Resolver) client(ctx context.Context, accessToken string) *http.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	c := oauth2.NewClient(ctx, ts)
	c.Timeout = r.timeout
	return c
}

func (r *Resolver) google(ctx context.Context, client *http.Client) (string, error) {
	svc, err := oauth2v2.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(r.endpoints.Google),
	)
	if err != nil {
		return "", fmt.Errorf("create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if info.Email != "" {
		return info.Email, nil
	}
	return info.Name, nil
}

func (r *Resolver) github(ctx context.Context, client *http.Client) (string, error) {
	c := gh.NewClient(client)
	if r.endpoints.GitHub != "" {
		base, err := url.Parse(withTrailingSlash(r.endpoints.GitHub))
		if err != nil {
			return "", fmt.Errorf("parse github endpoint: %w", err)
		}
		c.BaseURL = base
	}
	user, _, err := c.Users.Get(ctx, "")
	if err != nil {
		return "", err
	}
	return user.GetLogin(), nil
}

// discordUser is the subset of GET /users/@me used here.
type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name"`
	Discriminator string `json:"discriminator"`
}

func (r *Resolver) discord(ctx context.Context, client *http.Client) (string, error) {
	endpoint := withTrailingSlash(r.endpoints.Discord) + "users/@me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user request failed with status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	// Accounts migrated to unique usernames report discriminator "0".
	if user.Discriminator != "" && user.Discriminator != "0" {
		return user.Username + "#" + user.Discriminator, nil
	}
	return user.Username, nil
}

func withTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
