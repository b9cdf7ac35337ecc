package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the detrace tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all detrace tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "detrace",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the strip and scan tools to the server.
func (s *Server) registerTools() {
	// Preview the edits without touching any file
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "strip_dry_run",
		Description: describeStripDryRun(),
	}, handleStripDryRun)

	// Rewrite files in place
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "strip_apply",
		Description: describeStripApply(),
	}, handleStripApply)

	// List the files a strip run would consider
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scan_targets",
		Description: describeScanTargets(),
	}, handleScanTargets)
}
