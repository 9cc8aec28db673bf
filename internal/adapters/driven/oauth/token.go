// Package oauth provides token endpoint requests for external providers.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driven"
	"github.com/unifiedhub/unifiedhub/internal/logger"
)

// Ensure Exchanger implements the interface.
var _ driven.TokenExchanger = (*Exchanger)(nil)

// maxBodyBytes caps how much of a token response is read.
const maxBodyBytes = 1 << 20

// tokenResponse is the token endpoint payload. Some providers return
// expires_in as a string, so it is decoded as a json.Number.
type tokenResponse struct {
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	TokenType        string      `json:"token_type"`
	ExpiresIn        json.Number `json:"expires_in"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

// Exchanger performs authorization code and refresh token requests with a
// single form POST per call. It never retries.
type Exchanger struct {
	redirectURI string
	client      *http.Client
	now         func() time.Time
}

// NewExchanger creates an exchanger. redirectURI must be byte-identical to
// the one used in the authorization URL. A nil client gets a default client
// with the given timeout.
func NewExchanger(redirectURI string, client *http.Client, timeout time.Duration) *Exchanger {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Exchanger{
		redirectURI: redirectURI,
		client:      client,
		now:         time.Now,
	}
}

// ExchangeCode trades an authorization code for a token pair.
func (e *Exchanger) ExchangeCode(ctx context.Context, provider *domain.Provider, code string) (domain.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", e.redirectURI)
	data.Set("client_id", provider.ClientID)
	data.Set("client_secret", provider.ClientSecret)

	logger.Debug("exchanging authorization code with %s", provider.TokenURL)
	return e.post(ctx, provider, data)
}

// Refresh obtains a new token pair from a refresh token.
func (e *Exchanger) Refresh(ctx context.Context, provider *domain.Provider, refreshToken string) (domain.TokenPair, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("client_id", provider.ClientID)
	data.Set("client_secret", provider.ClientSecret)

	logger.Debug("refreshing %s token", provider.ID)
	return e.post(ctx, provider, data)
}

func (e *Exchanger) post(ctx context.Context, provider *domain.Provider, data url.Values) (domain.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return domain.TokenPair{}, domain.NewAuthError(domain.AuthErrorTransport, provider.ID, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.TokenPair{}, domain.NewAuthError(domain.AuthErrorTransport, provider.ID, fmt.Errorf("token request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.TokenPair{}, domain.NewAuthError(domain.AuthErrorTransport, provider.ID, fmt.Errorf("read token response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TokenPair{}, &domain.AuthError{
			Kind:       domain.AuthErrorRejected,
			Provider:   provider.ID,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        rejectionReason(body, resp.StatusCode),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.TokenPair{}, &domain.AuthError{
			Kind:       domain.AuthErrorMalformedResponse,
			Provider:   provider.ID,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("decode token response: %w", err),
		}
	}
	if tr.Error != "" {
		return domain.TokenPair{}, &domain.AuthError{
			Kind:       domain.AuthErrorRejected,
			Provider:   provider.ID,
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("token error: %s - %s", tr.Error, tr.ErrorDescription),
		}
	}
	if tr.AccessToken == "" {
		return domain.TokenPair{}, &domain.AuthError{
			Kind:       domain.AuthErrorMalformedResponse,
			Provider:   provider.ID,
			StatusCode: resp.StatusCode,
			Err:        errors.New("response has no access_token"),
		}
	}

	pair := domain.TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if secs, err := tr.ExpiresIn.Int64(); err == nil && secs > 0 {
		pair.Expiry = e.now().Add(time.Duration(secs) * time.Second)
	}
	return pair, nil
}

// rejectionReason extracts the OAuth error from a non-2xx body when present.
func rejectionReason(body []byte, status int) error {
	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("token error: %s - %s", errResp.Error, errResp.Description)
	}
	return fmt.Errorf("token request failed with status %d", status)
}
