package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

const testRedirectURI = "http://localhost:8080/callback"

func testProvider(tokenURL string) *domain.Provider {
	return &domain.Provider{
		ID:           domain.ProviderGoogle,
		Name:         "Google",
		TokenURL:     tokenURL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
}

func fixedClock(exch *Exchanger, now time.Time) {
	exch.now = func() time.Time { return now }
}

func TestExchanger_ExchangeCode_Success(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"code":          r.PostForm.Get("code"),
			"redirect_uri":  r.PostForm.Get("redirect_uri"),
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"A1","refresh_token":"R1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	fixedClock(exch, now)

	pair, err := exch.ExchangeCode(context.Background(), testProvider(server.URL), "abc123")

	require.NoError(t, err)
	assert.Equal(t, "A1", pair.AccessToken)
	assert.Equal(t, "R1", pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, now.Add(time.Hour), pair.Expiry)

	assert.Equal(t, map[string]string{
		"grant_type":    "authorization_code",
		"code":          "abc123",
		"redirect_uri":  testRedirectURI,
		"client_id":     "client-id",
		"client_secret": "client-secret",
	}, form)
}

func TestExchanger_Refresh_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "R1", r.PostForm.Get("refresh_token"))
		assert.Empty(t, r.PostForm.Get("redirect_uri"))
		_, _ = w.Write([]byte(`{"access_token":"A2","token_type":"Bearer","expires_in":"1800"}`))
	}))
	defer server.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	fixedClock(exch, now)

	pair, err := exch.Refresh(context.Background(), testProvider(server.URL), "R1")

	require.NoError(t, err)
	assert.Equal(t, "A2", pair.AccessToken)
	assert.Empty(t, pair.RefreshToken, "refresh token is not carried over by the exchanger")
	assert.Equal(t, now.Add(30*time.Minute), pair.Expiry)
}

func TestExchanger_NoExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"gho_x","token_type":"bearer","scope":"repo"}`))
	}))
	defer server.Close()

	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	pair, err := exch.ExchangeCode(context.Background(), testProvider(server.URL), "c")

	require.NoError(t, err)
	assert.True(t, pair.Expiry.IsZero())
}

func TestExchanger_Errors(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		expectedKind   domain.AuthErrorKind
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "invalid grant",
			status:         http.StatusBadRequest,
			body:           `{"error":"invalid_grant","error_description":"Bad Request"}`,
			expectedKind:   domain.AuthErrorRejected,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid_grant",
		},
		{
			name:           "server error with html body",
			status:         http.StatusBadGateway,
			body:           `<html>bad gateway</html>`,
			expectedKind:   domain.AuthErrorRejected,
			expectedStatus: http.StatusBadGateway,
			expectedMsg:    "status 502",
		},
		{
			name:           "oauth error in 200",
			status:         http.StatusOK,
			body:           `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`,
			expectedKind:   domain.AuthErrorRejected,
			expectedStatus: http.StatusOK,
			expectedMsg:    "bad_verification_code",
		},
		{
			name:           "missing access token",
			status:         http.StatusOK,
			body:           `{"token_type":"Bearer"}`,
			expectedKind:   domain.AuthErrorMalformedResponse,
			expectedStatus: http.StatusOK,
			expectedMsg:    "no access_token",
		},
		{
			name:           "not json",
			status:         http.StatusOK,
			body:           `access_token=abc&token_type=bearer`,
			expectedKind:   domain.AuthErrorMalformedResponse,
			expectedStatus: http.StatusOK,
			expectedMsg:    "decode token response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			exch := NewExchanger(testRedirectURI, server.Client(), 0)
			pair, err := exch.ExchangeCode(context.Background(), testProvider(server.URL), "c")

			require.Error(t, err)
			assert.True(t, pair.IsZero())

			var ae *domain.AuthError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.expectedKind, ae.Kind)
			assert.Equal(t, domain.ProviderGoogle, ae.Provider)
			assert.Equal(t, tt.expectedStatus, ae.StatusCode)
			assert.Contains(t, err.Error(), tt.expectedMsg)
		})
	}
}

func TestExchanger_RejectedKeepsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer server.Close()

	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	_, err := exch.Refresh(context.Background(), testProvider(server.URL), "r")

	var ae *domain.AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, `{"error":"invalid_client"}`, ae.Body)
}

func TestExchanger_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	exch := NewExchanger(testRedirectURI, nil, time.Second)
	_, err := exch.ExchangeCode(context.Background(), testProvider(url), "c")

	assert.True(t, domain.IsAuthErrorKind(err, domain.AuthErrorTransport), "got %v", err)
	assert.True(t, domain.AuthErrorTransport.Retryable())
}

func TestExchanger_SingleRequestPerCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	_, err := exch.Refresh(context.Background(), testProvider(server.URL), "r")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExchanger_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exch := NewExchanger(testRedirectURI, server.Client(), 0)
	_, err := exch.ExchangeCode(ctx, testProvider(server.URL), "c")

	assert.ErrorIs(t, err, context.Canceled)
}
