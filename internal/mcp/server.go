package mcp

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentberlin/sidewinder/internal/app"
)

const (
	ServerName    = "sidewinder"
	ServerVersion = "1.0.0"
)

// MCPServer exposes the core sidewinder app to agent tooling over MCP
type MCPServer struct {
	server *mcp.Server
	app    *app.App
	logger *log.Logger
}

// NewMCPServer creates an MCP server over an already-wired app. The caller
// owns the app's backends and their lifecycle.
func NewMCPServer(coreApp *app.App) *MCPServer {
	logger := log.New(os.Stderr, "[Sidewinder MCP] ", log.LstdFlags)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, nil)

	s := &MCPServer{
		server: server,
		app:    coreApp,
		logger: logger,
	}
	s.registerTools()
	return s
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// Run serves MCP over stdio and blocks until the client disconnects or ctx
// is cancelled.
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Printf("Serving MCP on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP starts the MCP server with HTTP transport using StreamableHTTPHandler
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	s.logger.Printf("Starting MCP HTTP server on %s...", addr)

	handler := mcp.NewStreamableHTTPHandler(
		func(req *http.Request) *mcp.Server {
			return s.server
		},
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()

	return httpServer, nil
}
