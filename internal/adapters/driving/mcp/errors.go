// Package mcp provides an MCP (Model Context Protocol) server adapter for
// UnifiedHub. It lets AI assistants inspect and drive provider connections.
package mcp

import "errors"

// ErrMissingSessionDirectory is returned when the session directory is not provided.
var ErrMissingSessionDirectory = errors.New("mcp: session directory is required")
