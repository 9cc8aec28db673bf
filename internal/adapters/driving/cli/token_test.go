package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

func TestTokenCmd_PrintsToken(t *testing.T) {
	ts := withServices(t)
	ts.sessions.token = "ya29.access"

	out, err := execute(t, "token", "google")

	require.NoError(t, err)
	assert.Equal(t, "ya29.access\n", out)
}

func TestTokenCmd_NotConnected(t *testing.T) {
	ts := withServices(t)
	ts.sessions.tokenErr = domain.ErrAuthRequired

	_, err := execute(t, "token", "discord")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'unifiedhub connect discord'")
}

func TestTokenCmd_RefreshFailure(t *testing.T) {
	ts := withServices(t)
	ts.sessions.tokenErr = domain.NewAuthError(domain.AuthErrorRefreshRevoked, domain.ProviderGoogle, errors.New("invalid_grant"))

	_, err := execute(t, "token", "google")

	require.Error(t, err)
	assert.True(t, domain.IsAuthErrorKind(err, domain.AuthErrorRefreshRevoked))
}
