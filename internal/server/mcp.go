// Package server exposes a chat session over MCP (stdio) and over a
// websocket for browser or script clients.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/chatterm/internal/tools"
)

// MCPServer wraps the MCP server with dependencies and lifecycle management.
type MCPServer struct {
	mcp    *mcp.Server
	logger *slog.Logger
}

// NewMCP creates a new MCP server with the given version and logger.
func NewMCP(version string, logger *slog.Logger) *MCPServer {
	impl := &mcp.Implementation{
		Name:    "chatterm",
		Version: version,
	}

	return &MCPServer{
		mcp:    mcp.NewServer(impl, nil),
		logger: logger,
	}
}

// Setup adds the logging middleware and registers the chat tools.
func (s *MCPServer) Setup(deps *tools.Dependencies) {
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger))
	tools.RegisterAll(s.mcp, deps)
}

// Run starts the server on stdio transport and blocks until disconnect or context cancellation.
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Server returns the underlying MCP server.
func (s *MCPServer) Server() *mcp.Server {
	return s.mcp
}
