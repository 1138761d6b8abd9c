// Package mcpstdio wires the same tool/resource/prompt construction
// mcphttp uses onto mcp-go's stdio transport
// (mcpserver.NewStdioServer(srv); stdioServer.Listen(ctx, in, out)).
package mcpstdio

import (
	"context"
	"io"

	"github.com/cheshire-mcp/cheshire/internal/capability"
	"github.com/cheshire-mcp/cheshire/internal/dispatcher"
	"github.com/cheshire-mcp/cheshire/internal/protocol/mcphttp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server adapts mcp-go's *server.StdioServer to transport.StdioServer's
// Listen(ctx, in, out) error shape — which is, byte for byte, the shape
// mcp-go already exposes, so this wrapper exists only to keep the
// transport package free of a direct mcp-go import.
type Server struct {
	inner *mcpserver.StdioServer
}

// New builds the MCP server for cap (tools/resources/prompts wired to d,
// same construction mcphttp.NewServer uses) and wraps it for stdio.
func New(name, version string, cap *capability.Capability, d *dispatcher.Dispatcher) *Server {
	mcpSrv := mcphttp.NewServer(name, version, cap, d)
	return &Server{inner: mcpserver.NewStdioServer(mcpSrv)}
}

// Listen runs the stdio request/response loop until ctx is cancelled or
// the underlying loop exits on its own.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.inner.Listen(ctx, in, out)
}
