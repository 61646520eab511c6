package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/shadow-ui/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the stored artifacts over MCP (stdio)",
	Long: `Start a Model Context Protocol server that lets coding assistants query
the artifacts of the last extraction run.

Tools:
- shadowui_nodes       UI construction calls filtered by file, type or identity
- shadowui_edge_cases  constructs that could not be fully modeled
- shadowui_selectors   id/class references and the widgets they target
- shadowui_file        everything stored for one file

The store is opened read-only; run 'shadowui extract' (optionally with
--watch) to refresh it while the server is running.

Example:
  shadowui mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	svc, db, err := openQueryService()
	if err != nil {
		return err
	}
	defer db.Close()

	if run, err := svc.LatestRun(); err == nil {
		fmt.Fprintf(os.Stderr, "shadowui MCP server\n")
		fmt.Fprintf(os.Stderr, "Root: %s\n", run.RootDir)
		fmt.Fprintf(os.Stderr, "Last run: %s (%d nodes, %d selector refs)\n\n",
			run.FinishedAt.Local().Format("2006-01-02 15:04:05"), run.Nodes, run.Tokens)
	}

	server := mcp.NewMCPServer(svc, Version)
	if err := server.Serve(context.Background()); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
