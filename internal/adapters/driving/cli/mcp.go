package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/movement-lens/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the movement dataset as tools (search_movements,
analyse_movements, get_full_database_context) and resources (lens://movements,
lens://movements/{id}, lens://context).

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead, for MCP Inspector or remote access.

Examples:
  # Stdio mode (default, for desktop assistants)
  lens mcp serve

  # HTTP mode
  lens mcp serve --port 8080

Desktop assistant configuration:
  {
    "mcpServers": {
      "movement-lens": {
        "command": "/path/to/lens",
        "args": ["mcp", "serve"]
      }
    }
  }`,
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

	backend, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer backend.Close()

	ports := &mcp.Ports{
		Dataset:   backend.Dataset,
		Synthesis: backend.Synthesis,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		// stdout carries JSON-RPC in stdio mode, so only announce in HTTP mode.
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
