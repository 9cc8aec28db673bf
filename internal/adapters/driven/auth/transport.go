// Package auth bridges the session directory to HTTP clients used by
// feature workers: an oauth2.TokenSource and a bearer-token transport that
// reports 401 responses back as staleness.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/identity"
	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// TokenProvider is the part of the session directory feature workers use.
type TokenProvider interface {
	CurrentToken(ctx context.Context, provider domain.ProviderID) (string, error)
	ReportUnauthorized(provider domain.ProviderID, accessToken string)
}

// TokenSourceAdapter adapts a TokenProvider to oauth2.TokenSource so Google
// API clients and go-github can use the directory's token management.
type TokenSourceAdapter struct {
	ctx      context.Context
	tokens   TokenProvider
	provider domain.ProviderID
}

// NewTokenSource creates an oauth2.TokenSource for one provider. It does
// not cache; every Token call asks the directory.
func NewTokenSource(ctx context.Context, tokens TokenProvider, provider domain.ProviderID) oauth2.TokenSource {
	return &TokenSourceAdapter{ctx: ctx, tokens: tokens, provider: provider}
}

// Token implements oauth2.TokenSource.
func (t *TokenSourceAdapter) Token() (*oauth2.Token, error) {
	accessToken, err := t.tokens.CurrentToken(t.ctx, t.provider)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, nil
}

// Transport injects the provider's current bearer token and reports 401
// responses. A request whose body can be replayed is retried once when the
// report produced a different token.
type Transport struct {
	Base     http.RoundTripper
	Tokens   TokenProvider
	Provider domain.ProviderID
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	src := NewTokenSource(req.Context(), t.Tokens, t.Provider)
	tok, err := src.Token()
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("%s token: %w", t.Provider, err)
	}

	resp, err := t.base().RoundTrip(withToken(req, tok))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	logger.Debug("%s answered 401 for %s, marking token stale", t.Provider, req.URL.Redacted())
	t.Tokens.ReportUnauthorized(t.Provider, tok.AccessToken)

	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}
	fresh, err := src.Token()
	if err != nil || fresh.AccessToken == tok.AccessToken {
		return resp, nil
	}

	retry := withToken(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return resp, nil
		}
		retry.Body = body
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return t.base().RoundTrip(retry)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// withToken clones req with the Authorization header set from tok.
func withToken(req *http.Request, tok *oauth2.Token) *http.Request {
	r := req.Clone(req.Context())
	tok.SetAuthHeader(r)
	return r
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// NewHTTPClient returns a client that authenticates every request as
// provider through tokens.
func NewHTTPClient(tokens TokenProvider, provider domain.ProviderID, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &Transport{Tokens: tokens, Provider: provider},
	}
}

// IsUnauthorized returns true if err is a 401 from a Google or GitHub API
// client or from an identity lookup.
func IsUnauthorized(err error) bool {
	if errors.Is(err, identity.ErrUnauthorized) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	var herr *gh.ErrorResponse
	if errors.As(err, &herr) && herr.Response != nil {
		return herr.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}
