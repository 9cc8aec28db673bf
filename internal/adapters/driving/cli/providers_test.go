package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvidersCmd_ListsProviders(t *testing.T) {
	withServices(t)

	out, err := execute(t, "providers")

	require.NoError(t, err)
	assert.Contains(t, out, "Redirect URI: http://localhost:8080/callback")
	assert.Contains(t, out, "configured")
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "register a client at https://discord.com/developers/applications")
	assert.Contains(t, out, "tokens do not refresh")
}

func TestProvidersCmd_ErrorsWithoutRegistry(t *testing.T) {
	withServices(t)
	providerRegistry = nil

	_, err := execute(t, "providers")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
