package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service QueryService
	// Document is mentioned in the tool description.
	Document string
	Version  string
}

// NewServer creates a configured MCP server with the ask_document tool registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pdf-qa-server",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_document",
		Description: "Answer a question using the content of " + cfg.Document +
			". Returns the generated answer and the document passages it was based on.",
	}, makeAskHandler(cfg.Service))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable
// HTTP transport. Stateless mode is used since the tool never calls back into
// the client.
func NewHTTPHandler(server *Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}
