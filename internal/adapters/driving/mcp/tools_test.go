package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

func newTestServer(t *testing.T, sessions *mockSessionDirectory) *Server {
	t.Helper()
	server, err := NewServer(&Ports{
		Sessions:  sessions,
		Providers: &mockProviderRegistry{configured: map[domain.ProviderID]bool{domain.ProviderGoogle: true}},
	})
	require.NoError(t, err)
	return server
}

func TestServer_handleStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports every provider", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.set(domain.SessionStatus{
			Provider: domain.ProviderGoogle,
			State:    domain.StateConnected,
			Account:  "user@example.com",
		})
		server := newTestServer(t, sessions)

		_, output, err := server.handleStatus(ctx, nil, StatusInput{})

		require.NoError(t, err)
		require.Len(t, output.Connections, len(domain.KnownProviders))
		google := output.Connections[0]
		assert.Equal(t, "google", google.Provider)
		assert.Equal(t, "Google", google.Name)
		assert.Equal(t, "connected", google.State)
		assert.Equal(t, "Connected as user@example.com", google.Message)
		assert.True(t, google.Configured)
		assert.False(t, output.Connections[1].Configured)
	})

	t.Run("single provider", func(t *testing.T) {
		server := newTestServer(t, newMockSessionDirectory())

		_, output, err := server.handleStatus(ctx, nil, StatusInput{Provider: "GitHub"})

		require.NoError(t, err)
		require.Len(t, output.Connections, 1)
		assert.Equal(t, "github", output.Connections[0].Provider)
		assert.Equal(t, "Not connected", output.Connections[0].Message)
	})

	t.Run("unknown provider", func(t *testing.T) {
		server := newTestServer(t, newMockSessionDirectory())

		_, _, err := server.handleStatus(ctx, nil, StatusInput{Provider: "myspace"})

		assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	})

	t.Run("failed session carries error kind", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.set(domain.SessionStatus{
			Provider:  domain.ProviderDiscord,
			State:     domain.StateFailed,
			LastError: "invalid_grant",
			ErrorKind: domain.AuthErrorRefreshRevoked,
		})
		server := newTestServer(t, sessions)

		_, output, err := server.handleStatus(ctx, nil, StatusInput{Provider: "discord"})

		require.NoError(t, err)
		assert.Equal(t, "refresh_revoked", output.Connections[0].ErrorKind)
		assert.Equal(t, "Session expired. Please reconnect", output.Connections[0].Message)
	})
}

func TestServer_handleConnect(t *testing.T) {
	t.Run("wait blocks until connected", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		server := newTestServer(t, sessions)

		_, output, err := server.handleConnect(context.Background(), nil, ConnectInput{Provider: "google", Wait: true})

		require.NoError(t, err)
		assert.Equal(t, "connected", output.State)
		assert.Equal(t, "user@example.com", output.Account)
	})

	t.Run("auth failure is reported in the status", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.connectErr = domain.NewAuthError(domain.AuthErrorProviderDenied, domain.ProviderGoogle, errors.New("access_denied"))
		sessions.set(domain.SessionStatus{
			Provider:  domain.ProviderGoogle,
			State:     domain.StateDisconnected,
			ErrorKind: domain.AuthErrorProviderDenied,
		})
		server := newTestServer(t, sessions)

		_, output, err := server.handleConnect(context.Background(), nil, ConnectInput{Provider: "google", Wait: true})

		require.NoError(t, err)
		assert.Equal(t, "Authorization was denied", output.Message)
	})

	t.Run("other failures are tool errors", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.connectErr = domain.ErrProviderNotConfigured
		server := newTestServer(t, sessions)

		_, _, err := server.handleConnect(context.Background(), nil, ConnectInput{Provider: "discord", Wait: true})

		assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)
	})

	t.Run("async outlives the request context", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		server := newTestServer(t, sessions)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, output, err := server.handleConnect(ctx, nil, ConnectInput{Provider: "github"})

		require.NoError(t, err)
		assert.Equal(t, "authorizing", output.State)
		assert.NoError(t, sessions.asyncCtxErr)
		assert.Equal(t, []domain.ProviderID{domain.ProviderGitHub}, sessions.connected)
	})

	t.Run("unknown provider", func(t *testing.T) {
		server := newTestServer(t, newMockSessionDirectory())

		_, _, err := server.handleConnect(context.Background(), nil, ConnectInput{Provider: ""})

		assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	})
}

func TestServer_handleDisconnect(t *testing.T) {
	ctx := context.Background()

	t.Run("disconnects provider", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.set(domain.SessionStatus{Provider: domain.ProviderGoogle, State: domain.StateConnected})
		server := newTestServer(t, sessions)

		_, output, err := server.handleDisconnect(ctx, nil, ProviderInput{Provider: "google"})

		require.NoError(t, err)
		assert.Equal(t, "disconnected", output.State)
		assert.Equal(t, []domain.ProviderID{domain.ProviderGoogle}, sessions.disconnected)
	})

	t.Run("persist failure is returned", func(t *testing.T) {
		sessions := newMockSessionDirectory()
		sessions.disconnectErr = errors.New("disk full")
		server := newTestServer(t, sessions)

		_, _, err := server.handleDisconnect(ctx, nil, ProviderInput{Provider: "google"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestIsUserFacing(t *testing.T) {
	assert.True(t, isUserFacing(domain.NewAuthError(domain.AuthErrorTimeout, domain.ProviderGoogle, context.DeadlineExceeded)))
	assert.True(t, isUserFacing(domain.ErrAttemptCancelled))
	assert.False(t, isUserFacing(domain.ErrDirectoryClosed))
}
