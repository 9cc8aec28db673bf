package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedhub/unifiedhub/internal/adapters/driven/identity"
	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

func newDiscordResolver(t *testing.T, acceptToken string) *identity.Resolver {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" || r.Header.Get("Authorization") != "Bearer "+acceptToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","username":"wumpus","discriminator":"0"}`))
	}))
	t.Cleanup(srv.Close)
	return identity.NewResolver(5 * time.Second).WithEndpoints(identity.Endpoints{Discord: srv.URL})
}

func TestAccountLookup_Lookup(t *testing.T) {
	lookup := NewAccountLookup(&fakeTokens{}, newDiscordResolver(t, "token-0"), 5*time.Second)

	account, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	require.NoError(t, err)
	assert.Equal(t, "wumpus", account)
}

func TestAccountLookup_RetriesAfterStaleToken(t *testing.T) {
	tokens := &fakeTokens{}
	lookup := NewAccountLookup(tokens, newDiscordResolver(t, "token-1"), 5*time.Second)

	account, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	require.NoError(t, err)
	assert.Equal(t, "wumpus", account)
	assert.Equal(t, []string{"token-0"}, tokens.reports)
}

func TestAccountLookup_RevokedToken(t *testing.T) {
	tokens := &fakeTokens{stickyToken: true}
	lookup := NewAccountLookup(tokens, newDiscordResolver(t, "other"), 5*time.Second)

	_, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	assert.ErrorIs(t, err, domain.ErrTokenRejected)
	assert.ErrorIs(t, err, identity.ErrUnauthorized)
	assert.Equal(t, []string{"token-0"}, tokens.reports)
}

func TestAccountLookup_RejectedAfterRefresh(t *testing.T) {
	tokens := &fakeTokens{}
	lookup := NewAccountLookup(tokens, newDiscordResolver(t, "never"), 5*time.Second)

	_, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	assert.ErrorIs(t, err, domain.ErrTokenRejected)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, []string{"token-0"}, tokens.reports)
}

func TestAccountLookup_GitHubRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()
	resolver := identity.NewResolver(5 * time.Second).WithEndpoints(identity.Endpoints{GitHub: srv.URL})
	lookup := NewAccountLookup(&fakeTokens{stickyToken: true}, resolver, 5*time.Second)

	_, err := lookup.Lookup(context.Background(), domain.ProviderGitHub)

	assert.ErrorIs(t, err, domain.ErrTokenRejected)
}

func TestAccountLookup_OtherFailuresPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	resolver := identity.NewResolver(5 * time.Second).WithEndpoints(identity.Endpoints{Discord: srv.URL})
	lookup := NewAccountLookup(&fakeTokens{}, resolver, 5*time.Second)

	_, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTokenRejected)
}

func TestAccountLookup_NotConnected(t *testing.T) {
	lookup := NewAccountLookup(&fakeTokens{err: domain.ErrAuthRequired}, newDiscordResolver(t, "token-0"), time.Second)

	_, err := lookup.Lookup(context.Background(), domain.ProviderDiscord)

	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}
