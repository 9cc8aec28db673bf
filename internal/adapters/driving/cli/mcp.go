package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unifiedhub/unifiedhub/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so an AI assistant can check
and manage provider connections.

By default the server communicates over stdio using JSON-RPC. Use --port
to serve over HTTP instead. The port must differ from the redirect port
(8080), which connect attempts need free.

Examples:
  # Stdio mode
  unifiedhub mcp serve

  # HTTP mode
  unifiedhub mcp serve --port 9090`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil && port == s.Redirect.Port {
			return fmt.Errorf("port %d is reserved for the authorization redirect", port)
		}
	}

	ports := &mcp.Ports{
		Sessions:  sessions,
		Providers: providerRegistry,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(commandContext(cmd), addr)
	}

	return server.Run(commandContext(cmd))
}
