package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/codeforge/internal/output"
	scannerSvc "github.com/panbanda/codeforge/internal/service/scanner"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/testgen"
	"github.com/panbanda/codeforge/pkg/workflow"
)

// defaultPath names inline code that arrives without a path.
const defaultPath = "snippet"

// Common input structures for tools

// CodeInput is the base input for tools working on inline source.
type CodeInput struct {
	Code     string `json:"code" jsonschema:"Source code to analyze."`
	Language string `json:"language,omitempty" jsonschema:"Language name (python, go, typescript, ...). Detected from path when empty."`
	Path     string `json:"path,omitempty" jsonschema:"File path used for language detection and in reported locations."`
	Format   string `json:"format,omitempty" jsonschema:"Output format: toon (default) or json."`
}

// PathsInput is the base input for tools working on files on disk.
type PathsInput struct {
	Paths        []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
	ChangedSince string   `json:"changed_since,omitempty" jsonschema:"Only analyze files changed since this git ref."`
	Format       string   `json:"format,omitempty" jsonschema:"Output format: toon (default) or json."`
}

// TestsInput adds test generation options.
type TestsInput struct {
	CodeInput
	Framework string `json:"framework,omitempty" jsonschema:"Test framework. Defaults to the configured framework for the language."`
	CodeOnly  bool   `json:"code_only,omitempty" jsonschema:"Return only the generated test code."`
}

// VerifyInput holds the two versions of a refactored file.
type VerifyInput struct {
	Original   string `json:"original" jsonschema:"Source before refactoring."`
	Refactored string `json:"refactored" jsonschema:"Source after refactoring."`
	Language   string `json:"language,omitempty" jsonschema:"Language name. Detected from path when empty."`
	Path       string `json:"path,omitempty" jsonschema:"File path used for language detection."`
	Format     string `json:"format,omitempty" jsonschema:"Output format: toon (default) or json."`
}

// WorkflowInput configures workflow generation.
type WorkflowInput struct {
	Language       string   `json:"language,omitempty" jsonschema:"Project language. Default python."`
	Features       []string `json:"features,omitempty" jsonschema:"Features to include: quality, security, tests, coverage, artifacts. Default all."`
	Branches       []string `json:"branches,omitempty" jsonschema:"Branches that trigger the workflow. Default main and develop."`
	RuntimeVersion string   `json:"runtime_version,omitempty" jsonschema:"Language runtime version. Defaults per language."`
}

// GatesInput adds quality gate options.
type GatesInput struct {
	PathsInput
	Coverage *float64 `json:"coverage,omitempty" jsonschema:"Measured test coverage percent. The coverage gate is skipped when absent."`
	Only     []string `json:"only,omitempty" jsonschema:"Evaluate only these gates: coverage, complexity, security, maintainability, overall_score, response_time."`
}

// Helper functions

func getPaths(input PathsInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	if strings.EqualFold(format, "json") {
		return output.FormatJSON
	}
	return output.FormatTOON
}

// resolveCode validates inline code input and returns the path and language
// to analyze it under.
func resolveCode(code, lang, path string) (string, parser.Language, error) {
	if strings.TrimSpace(code) == "" {
		return "", "", fmt.Errorf("code is required")
	}
	if lang == "" && path == "" {
		return "", "", fmt.Errorf("language or path is required")
	}
	if path == "" {
		path = defaultPath
	}
	if lang == "" {
		return path, parser.DetectLanguage(path), nil
	}
	l := parser.ParseLanguageName(lang)
	if l == parser.LangUnknown {
		return "", "", fmt.Errorf("unknown language %q", lang)
	}
	return path, l, nil
}

func formatOutput(data any, format output.Format) (string, error) {
	out, err := output.Marshal(data, format)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return textResult(text)
}

func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// Tool handlers

func (s *Server) handleAnalyzeCode(ctx context.Context, req *mcp.CallToolRequest, input CodeInput) (*mcp.CallToolResult, any, error) {
	path, lang, err := resolveCode(input.Code, input.Language, input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	a, err := s.svc.NewAnalyzer()
	if err != nil {
		return toolError(err.Error())
	}
	defer a.Close()

	fa, err := a.AnalyzeSource(ctx, []byte(input.Code), path, lang)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(fa, getFormat(input.Format))
}

func (s *Server) scan(input PathsInput) ([]string, error) {
	scanner := scannerSvc.New(scannerSvc.WithConfig(s.svc.Config()), scannerSvc.WithLogger(s.logger))
	result, err := scanner.ScanChanged(getPaths(input), input.ChangedSince)
	if err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no source files found")
	}
	return result.Files, nil
}

func (s *Server) analyzePaths(ctx context.Context, input PathsInput) (*models.ProjectAnalysis, error) {
	files, err := s.scan(input)
	if err != nil {
		return nil, err
	}
	return s.svc.AnalyzeFiles(ctx, files, nil)
}

func (s *Server) handleAnalyzePaths(ctx context.Context, req *mcp.CallToolRequest, input PathsInput) (*mcp.CallToolResult, any, error) {
	project, err := s.analyzePaths(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(project, getFormat(input.Format))
}

func (s *Server) handleReviewCode(ctx context.Context, req *mcp.CallToolRequest, input CodeInput) (*mcp.CallToolResult, any, error) {
	path, lang, err := resolveCode(input.Code, input.Language, input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	report, err := s.svc.Review(ctx, []byte(input.Code), path, lang)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report, getFormat(input.Format))
}

func (s *Server) handleGenerateTests(ctx context.Context, req *mcp.CallToolRequest, input TestsInput) (*mcp.CallToolResult, any, error) {
	path, lang, err := resolveCode(input.Code, input.Language, input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	fw := testgen.Framework(strings.ToLower(input.Framework))
	if fw == "" {
		fw = s.svc.Framework(lang)
	}

	a, err := s.svc.NewAnalyzer()
	if err != nil {
		return toolError(err.Error())
	}
	defer a.Close()

	suite, err := s.svc.TestGenerator(a).Generate(ctx, []byte(input.Code), path, lang, fw)
	if err != nil {
		return toolError(err.Error())
	}
	if input.CodeOnly {
		return textResult(suite.Code)
	}
	return toolResult(suite, getFormat(input.Format))
}

func (s *Server) handleSuggestRefactoring(ctx context.Context, req *mcp.CallToolRequest, input CodeInput) (*mcp.CallToolResult, any, error) {
	path, lang, err := resolveCode(input.Code, input.Language, input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	a, err := s.svc.NewAnalyzer()
	if err != nil {
		return toolError(err.Error())
	}
	defer a.Close()

	fa, err := a.AnalyzeSource(ctx, []byte(input.Code), path, lang)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(s.svc.Refactorer(a).Plan(fa), getFormat(input.Format))
}

func (s *Server) handleVerifyRefactoring(ctx context.Context, req *mcp.CallToolRequest, input VerifyInput) (*mcp.CallToolResult, any, error) {
	_, lang, err := resolveCode(input.Original, input.Language, input.Path)
	if err != nil {
		return toolError("original: " + err.Error())
	}

	a, err := s.svc.NewAnalyzer()
	if err != nil {
		return toolError(err.Error())
	}
	defer a.Close()

	v, err := s.svc.Refactorer(a).Verify(ctx, []byte(input.Original), []byte(input.Refactored), lang)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(v, getFormat(input.Format))
}

func (s *Server) handleGenerateWorkflow(ctx context.Context, req *mcp.CallToolRequest, input WorkflowInput) (*mcp.CallToolResult, any, error) {
	opts := workflow.DefaultOptions()
	if input.Language != "" {
		opts.Language = parser.ParseLanguageName(input.Language)
		if opts.Language == parser.LangUnknown {
			return toolError(fmt.Sprintf("unknown language %q", input.Language))
		}
	}
	features, err := workflow.ParseFeatures(input.Features)
	if err != nil {
		return toolError(err.Error())
	}
	opts.Features = features
	if len(input.Branches) > 0 {
		opts.Branches = input.Branches
	}
	opts.RuntimeVersion = input.RuntimeVersion

	out, err := workflow.Workflow(opts)
	if err != nil {
		return toolError(err.Error())
	}
	return textResult(string(out))
}

func (s *Server) handleEvaluateGates(ctx context.Context, req *mcp.CallToolRequest, input GatesInput) (*mcp.CallToolResult, any, error) {
	project, err := s.analyzePaths(ctx, input.PathsInput)
	if err != nil {
		return toolError(err.Error())
	}

	result := workflow.Evaluate(s.svc.Gates(), project.Summary, input.Coverage)
	if len(input.Only) > 0 {
		if result, err = result.Filter(input.Only...); err != nil {
			return toolError(err.Error())
		}
	}
	return toolResult(result, getFormat(input.Format))
}
