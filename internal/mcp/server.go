// Package mcp exposes the knowledge retriever to agents as MCP tools over
// stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/testkb/internal/retriever"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes knowledge search and store tools.
type Server struct {
	retriever *retriever.Retriever
	logger    *zap.Logger
	mcp       *server.MCPServer
}

// NewServer creates a new MCP server backed by r.
func NewServer(r *retriever.Retriever, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		retriever: r,
		logger:    logger,
	}

	s.mcp = server.NewMCPServer(
		"testkb",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchErrorFixesTool, s.handleSearchErrorFixes)
	s.mcp.AddTool(storeSuccessfulFixTool, s.handleStoreSuccessfulFix)
	s.mcp.AddTool(searchCodePatternsTool, s.handleSearchCodePatterns)
	s.mcp.AddTool(storeCodePatternTool, s.handleStoreCodePattern)
	s.mcp.AddTool(searchTestPlansTool, s.handleSearchTestPlans)
	s.mcp.AddTool(storeTestPlanTool, s.handleStoreTestPlan)
	s.mcp.AddTool(searchApplicationKnowledgeTool, s.handleSearchApplicationKnowledge)
	s.mcp.AddTool(storeApplicationKnowledgeTool, s.handleStoreApplicationKnowledge)
	s.mcp.AddTool(getRAGStatsTool, s.handleGetRAGStats)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
