package mcp

import (
	"github.com/unifiedhub/unifiedhub/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
type Ports struct {
	// Sessions drives provider connections.
	Sessions driving.SessionDirectory

	// Providers supplies display names and configuration state. Optional.
	Providers driving.ProviderRegistry
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Sessions == nil {
		return ErrMissingSessionDirectory
	}
	return nil
}
