package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arah-ai/arah/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions about a student's documents.

By default the server speaks JSON-RPC over stdio. Use --port to serve the
streamable HTTP transport instead.

Tools: answer, list_documents, grade_rescue, grade_risks. Each tool takes an
optional user_id; --user sets the default.

Examples:
  # Stdio mode
  arah mcp serve --user 42

  # HTTP mode
  arah mcp serve --port 8080`,
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
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Answer:      answerService,
		Documents:   documentService,
		Grade:       gradeService,
		DefaultUser: userID,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
