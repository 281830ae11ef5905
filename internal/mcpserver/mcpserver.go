// Package mcpserver exposes the codeforge agents as Model Context Protocol
// tools and prompts over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/codeforge/internal/service/analysis"
	"github.com/rs/zerolog"
)

// Server wraps the MCP server and registers all codeforge tools.
type Server struct {
	server *mcp.Server
	svc    *analysis.Service
	logger zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithService sets the analysis service the tools run on.
func WithService(svc *analysis.Service) Option {
	return func(s *Server) {
		s.svc = svc
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// Tool names, in registration order.
const (
	toolAnalyzeCode        = "analyze_code"
	toolAnalyzePaths       = "analyze_paths"
	toolReviewCode         = "review_code"
	toolGenerateTests      = "generate_tests"
	toolSuggestRefactoring = "suggest_refactoring"
	toolVerifyRefactoring  = "verify_refactoring"
	toolGenerateWorkflow   = "generate_workflow"
	toolEvaluateGates      = "evaluate_gates"
)

// toolNames lists every registered tool.
var toolNames = []string{
	toolAnalyzeCode,
	toolAnalyzePaths,
	toolReviewCode,
	toolGenerateTests,
	toolSuggestRefactoring,
	toolVerifyRefactoring,
	toolGenerateWorkflow,
	toolEvaluateGates,
}

// NewServer creates a new MCP server with all codeforge tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "codeforge",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.svc == nil {
		s.svc = analysis.New(analysis.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Debug().Msg("mcp server listening on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds all codeforge tools to the server.
func (s *Server) registerTools() {
	// Single-file analysis
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolAnalyzeCode,
		Description: describeAnalyzeCode(),
	}, s.handleAnalyzeCode)

	// Project analysis
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolAnalyzePaths,
		Description: describeAnalyzePaths(),
	}, s.handleAnalyzePaths)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolReviewCode,
		Description: describeReviewCode(),
	}, s.handleReviewCode)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolGenerateTests,
		Description: describeGenerateTests(),
	}, s.handleGenerateTests)

	// Refactoring plan and its verification
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolSuggestRefactoring,
		Description: describeSuggestRefactoring(),
	}, s.handleSuggestRefactoring)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolVerifyRefactoring,
		Description: describeVerifyRefactoring(),
	}, s.handleVerifyRefactoring)

	// CI integration
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolGenerateWorkflow,
		Description: describeGenerateWorkflow(),
	}, s.handleGenerateWorkflow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolEvaluateGates,
		Description: describeEvaluateGates(),
	}, s.handleEvaluateGates)
}
