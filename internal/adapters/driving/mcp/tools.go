package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// StatusInput is the input schema for the connection_status tool.
type StatusInput struct {
	Provider string `json:"provider,omitempty" jsonschema:"provider to report (google, discord, github); empty reports all"`
}

// ConnectionOutput describes one provider connection.
type ConnectionOutput struct {
	Provider   string `json:"provider"`
	Name       string `json:"name"`
	State      string `json:"state"`
	Message    string `json:"message"`
	Account    string `json:"account,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	LastError  string `json:"last_error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Configured bool   `json:"configured"`
}

// StatusOutput is the output schema for the connection_status tool.
type StatusOutput struct {
	Connections []ConnectionOutput `json:"connections"`
}

// ProviderInput names a single provider.
type ProviderInput struct {
	Provider string `json:"provider" jsonschema:"provider ID: google, discord or github"`
}

// ConnectInput is the input schema for the connect_provider tool.
type ConnectInput struct {
	Provider string `json:"provider" jsonschema:"provider ID: google, discord or github"`
	Wait     bool   `json:"wait,omitempty" jsonschema:"block until the user finishes authorizing in the browser"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "connection_status",
		Description: "Report which provider accounts are connected",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "connect_provider",
		Description: "Open the browser to connect a provider account",
	}, s.handleConnect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "disconnect_provider",
		Description: "Discard the stored tokens for a provider account",
	}, s.handleDisconnect)
}

func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if input.Provider == "" {
		statuses := s.ports.Sessions.Statuses()
		out := StatusOutput{Connections: make([]ConnectionOutput, len(statuses))}
		for i, st := range statuses {
			out.Connections[i] = s.connectionOutput(st)
		}
		return nil, out, nil
	}

	id, err := domain.ParseProviderID(input.Provider)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	st, err := s.ports.Sessions.Status(id)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{Connections: []ConnectionOutput{s.connectionOutput(st)}}, nil
}

func (s *Server) handleConnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConnectInput,
) (*mcp.CallToolResult, ConnectionOutput, error) {
	id, err := domain.ParseProviderID(input.Provider)
	if err != nil {
		return nil, ConnectionOutput{}, err
	}

	if input.Wait {
		connectErr := s.ports.Sessions.Connect(ctx, id)
		st, err := s.ports.Sessions.Status(id)
		if err != nil {
			return nil, ConnectionOutput{}, err
		}
		if connectErr != nil && !isUserFacing(connectErr) {
			return nil, ConnectionOutput{}, connectErr
		}
		return nil, s.connectionOutput(st), nil
	}

	// The attempt outlives this tool call; its outcome shows up in
	// connection_status.
	s.ports.Sessions.ConnectAsync(context.WithoutCancel(ctx), id)
	st, err := s.ports.Sessions.Status(id)
	if err != nil {
		return nil, ConnectionOutput{}, err
	}
	return nil, s.connectionOutput(st), nil
}

func (s *Server) handleDisconnect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProviderInput,
) (*mcp.CallToolResult, ConnectionOutput, error) {
	id, err := domain.ParseProviderID(input.Provider)
	if err != nil {
		return nil, ConnectionOutput{}, err
	}
	if err := s.ports.Sessions.Disconnect(ctx, id); err != nil {
		return nil, ConnectionOutput{}, err
	}
	st, err := s.ports.Sessions.Status(id)
	if err != nil {
		return nil, ConnectionOutput{}, err
	}
	return nil, s.connectionOutput(st), nil
}

func (s *Server) connectionOutput(st domain.SessionStatus) ConnectionOutput {
	out := ConnectionOutput{
		Provider:  string(st.Provider),
		Name:      string(st.Provider),
		State:     string(st.State),
		Message:   st.Message(),
		Account:   st.Account,
		LastError: st.LastError,
		ErrorKind: string(st.ErrorKind),
	}
	if !st.Expiry.IsZero() {
		out.Expiry = st.Expiry.Format(time.RFC3339)
	}
	if s.ports.Providers != nil {
		if p, err := s.ports.Providers.Get(st.Provider); err == nil {
			out.Name = p.Name
			out.Configured = p.IsConfigured()
		}
	}
	return out
}

// isUserFacing reports whether a connect failure is already described by
// the session status and needs no tool error.
func isUserFacing(err error) bool {
	if errors.Is(err, domain.ErrAttemptCancelled) {
		return true
	}
	_, ok := domain.AuthErrorKindOf(err)
	return ok
}
