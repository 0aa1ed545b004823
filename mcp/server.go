package mcp

import (
	"net/http"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	gatewayhttp "github.com/agentpay/paygate/http"
)

// Server wraps an MCP server with payment admission. Tools whose names
// appear in the gateway's catalog are paid; all other tools and protocol
// methods are free.
type Server struct {
	mcpServer *mcpserver.MCPServer
	gateway   *gatewayhttp.Gateway
}

// NewServer creates an MCP server gated by the given admission gateway.
func NewServer(name, version string, gateway *gatewayhttp.Gateway) *Server {
	return &Server{
		mcpServer: mcpserver.NewMCPServer(name, version),
		gateway:   gateway,
	}
}

// AddTool registers a tool. Whether calls to it are paid is decided by
// catalog membership of the tool name at request time.
func (s *Server) AddTool(tool mcpproto.Tool, handler mcpserver.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
}

// Handler returns the streamable HTTP handler wrapped with payment gating.
func (s *Server) Handler(opts ...HandlerOption) http.Handler {
	base := mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return NewHandler(s.gateway, base, opts...)
}

// Start serves the payment-gated MCP server on addr.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

// MCPServer returns the underlying MCP server for advanced usage.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
