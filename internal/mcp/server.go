package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/shadow-ui/internal/query"
)

// MCPServer serves the stored artifacts of one project over stdio.
type MCPServer struct {
	mcp *server.MCPServer
}

// NewMCPServer creates a server exposing every shadowui tool backed by svc.
func NewMCPServer(svc *query.Service, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"shadowui-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	AddNodesTool(mcpServer, svc)
	AddEdgeCasesTool(mcpServer, svc)
	AddSelectorsTool(mcpServer, svc)
	AddFileTool(mcpServer, svc)

	return &MCPServer{mcp: mcpServer}
}

// Serve starts the MCP server and blocks until shutdown.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
