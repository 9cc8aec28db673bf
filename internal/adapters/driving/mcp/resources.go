package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for UnifiedHub resources.
	uriScheme = "unifiedhub://"

	connectionsURI = uriScheme + "connections"
)

// connectionURI is the resource URI of one provider's connection.
func connectionURI(id domain.ProviderID) string {
	return connectionsURI + "/" + string(id)
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         connectionsURI,
		Name:        "connections",
		Description: "Connection state of every provider account",
		MIMEType:    "application/json",
	}, s.handleConnectionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: connectionsURI + "/{provider}",
		Name:        "connection",
		Description: "Connection state of one provider account",
		MIMEType:    "application/json",
	}, s.handleConnectionResource)
}

func (s *Server) handleConnectionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	statuses := s.ports.Sessions.Statuses()
	infos := make([]ConnectionOutput, len(statuses))
	for i, st := range statuses {
		infos[i] = s.connectionOutput(st)
	}
	return jsonResource(req.Params.URI, infos)
}

func (s *Server) handleConnectionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id, err := domain.ParseProviderID(extractProvider(req.Params.URI))
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	st, err := s.ports.Sessions.Status(id)
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", id, err)
	}
	return jsonResource(req.Params.URI, s.connectionOutput(st))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractProvider extracts the provider from a URI like unifiedhub://connections/{provider}.
func extractProvider(uri string) string {
	const prefix = connectionsURI + "/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
