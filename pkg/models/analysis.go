package models

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/codeforge/pkg/parser"
)

// IssueType classifies a structural issue.
type IssueType string

const (
	IssueUnusedImport     IssueType = "unused_import"
	IssueLongFunction     IssueType = "long_function"
	IssueComplexCondition IssueType = "complex_condition"
	IssueNaming           IssueType = "naming_convention"
	IssueSyntaxError      IssueType = "syntax_error"
)

// String implements fmt.Stringer for toon serialization.
func (t IssueType) String() string { return string(t) }

// Issue is a structural problem detected from the AST.
type Issue struct {
	Type     IssueType `json:"type" toon:"type"`
	Message  string    `json:"message" toon:"message"`
	Line     uint32    `json:"line" toon:"line"`
	Severity Severity  `json:"severity" toon:"severity"`
	Symbol   string    `json:"symbol,omitempty" toon:"symbol,omitempty"`
}

// FindingCategory groups heuristic pattern matches.
type FindingCategory string

const (
	CategorySecurity    FindingCategory = "security"
	CategoryPerformance FindingCategory = "performance"
)

// String implements fmt.Stringer for toon serialization.
func (c FindingCategory) String() string { return string(c) }

// Finding is a heuristic pattern match anchored to a line.
type Finding struct {
	Rule     string          `json:"rule" toon:"rule"`
	Category FindingCategory `json:"category" toon:"category"`
	Message  string          `json:"message" toon:"message"`
	Line     uint32          `json:"line" toon:"line"`
	Severity Severity        `json:"severity" toon:"severity"`
	Snippet  string          `json:"snippet,omitempty" toon:"snippet,omitempty"`
}

// Suggestion is a low-severity improvement hint. Line is 0 for file-level hints.
type Suggestion struct {
	Kind    string `json:"kind" toon:"kind"`
	Message string `json:"message" toon:"message"`
	Line    uint32 `json:"line,omitempty" toon:"line,omitempty"`
}

// Metrics holds line counts and headline scores for a file.
type Metrics struct {
	TotalLines      int     `json:"total_lines" toon:"total_lines"`
	CodeLines       int     `json:"code_lines" toon:"code_lines"`
	CommentLines    int     `json:"comment_lines" toon:"comment_lines"`
	BlankLines      int     `json:"blank_lines" toon:"blank_lines"`
	Functions       int     `json:"functions" toon:"functions"`
	Classes         int     `json:"classes" toon:"classes"`
	Imports         int     `json:"imports" toon:"imports"`
	Cyclomatic      uint32  `json:"cyclomatic" toon:"cyclomatic"`
	Maintainability float64 `json:"maintainability" toon:"maintainability"`
}

// FunctionMetrics describes one function and its complexity.
type FunctionMetrics struct {
	Name       string   `json:"name" toon:"name"`
	Receiver   string   `json:"receiver,omitempty" toon:"receiver,omitempty"`
	StartLine  uint32   `json:"start_line" toon:"start_line"`
	EndLine    uint32   `json:"end_line" toon:"end_line"`
	Lines      int      `json:"lines" toon:"lines"`
	Params     []string `json:"params,omitempty" toon:"params,omitempty"`
	Statements int      `json:"statements" toon:"statements"`
	Cyclomatic uint32   `json:"cyclomatic" toon:"cyclomatic"`
	Cognitive  uint32   `json:"cognitive" toon:"cognitive"`
	MaxNesting int      `json:"max_nesting" toon:"max_nesting"`
	HasDoc     bool     `json:"has_doc" toon:"has_doc"`
	IsMethod   bool     `json:"is_method" toon:"is_method"`
}

// ClassMetrics describes one class-like definition.
type ClassMetrics struct {
	Name      string   `json:"name" toon:"name"`
	Kind      string   `json:"kind" toon:"kind"`
	StartLine uint32   `json:"start_line" toon:"start_line"`
	EndLine   uint32   `json:"end_line" toon:"end_line"`
	Methods   []string `json:"methods,omitempty" toon:"methods,omitempty"`
	HasDoc    bool     `json:"has_doc" toon:"has_doc"`
}

// ImportInfo describes one imported name.
type ImportInfo struct {
	Module string `json:"module" toon:"module"`
	Name   string `json:"name,omitempty" toon:"name,omitempty"`
	Line   uint32 `json:"line" toon:"line"`
}

// Structure is the symbol outline of a file.
type Structure struct {
	Functions       []FunctionMetrics `json:"functions" toon:"functions"`
	Classes         []ClassMetrics    `json:"classes" toon:"classes"`
	Imports         []ImportInfo      `json:"imports" toon:"imports"`
	MaxNestingDepth int               `json:"max_nesting_depth" toon:"max_nesting_depth"`
}

// ComplexityReport rates the control-flow complexity of a file.
type ComplexityReport struct {
	Cyclomatic    uint32  `json:"cyclomatic" toon:"cyclomatic"`
	Cognitive     uint32  `json:"cognitive" toon:"cognitive"`
	Level         Level   `json:"level" toon:"level"`
	Score         float64 `json:"score" toon:"score"`
	MaxNesting    int     `json:"max_nesting" toon:"max_nesting"`
	AvgCyclomatic float64 `json:"avg_function_cyclomatic" toon:"avg_function_cyclomatic"`
}

// SecurityReport scores heuristic security findings.
type SecurityReport struct {
	Score  float64   `json:"score" toon:"score"`
	Risk   Level     `json:"risk" toon:"risk"`
	Issues []Finding `json:"issues" toon:"issues"`
}

// PerformanceReport scores heuristic performance findings.
type PerformanceReport struct {
	Score        float64   `json:"score" toon:"score"`
	Optimization Level     `json:"optimization_needed" toon:"optimization_needed"`
	Issues       []Finding `json:"issues" toon:"issues"`
}

// FileAnalysis is the complete result for one source file.
type FileAnalysis struct {
	Path        string              `json:"path" toon:"path"`
	Language    parser.Language     `json:"language" toon:"language"`
	Metrics     Metrics             `json:"metrics" toon:"metrics"`
	Issues      []Issue             `json:"issues" toon:"issues"`
	Structure   Structure           `json:"structure" toon:"structure"`
	Complexity  ComplexityReport    `json:"complexity" toon:"complexity"`
	Security    SecurityReport      `json:"security" toon:"security"`
	Performance PerformanceReport   `json:"performance" toon:"performance"`
	Suggestions []Suggestion        `json:"suggestions" toon:"suggestions"`
	SyntaxError *parser.SyntaxError `json:"syntax_error,omitempty" toon:"syntax_error,omitempty"`
	ContentHash string              `json:"content_hash,omitempty" toon:"content_hash,omitempty"`

	// FlaggedLines holds every line with an issue or finding.
	FlaggedLines *roaring.Bitmap `json:"-" toon:"-"`
}

// OverallScore is the mean of the security, performance and maintainability scores.
func (a *FileAnalysis) OverallScore() float64 {
	return (a.Security.Score + a.Performance.Score + a.Metrics.Maintainability) / 3
}

// FindingCount returns the number of issues plus heuristic findings.
func (a *FileAnalysis) FindingCount() int {
	return len(a.Issues) + len(a.Security.Issues) + len(a.Performance.Issues)
}

// MarkFlagged rebuilds FlaggedLines from the current issues and findings.
func (a *FileAnalysis) MarkFlagged() {
	bm := roaring.New()
	for _, is := range a.Issues {
		if is.Line > 0 {
			bm.Add(is.Line)
		}
	}
	for _, f := range a.Security.Issues {
		bm.Add(f.Line)
	}
	for _, f := range a.Performance.Issues {
		bm.Add(f.Line)
	}
	a.FlaggedLines = bm
}

// FlaggedRatio returns the share of code lines carrying at least one finding.
func (a *FileAnalysis) FlaggedRatio() float64 {
	if a.FlaggedLines == nil || a.Metrics.CodeLines == 0 {
		return 0
	}
	return float64(a.FlaggedLines.GetCardinality()) / float64(a.Metrics.CodeLines)
}

// FileError records a file that could not be analyzed.
type FileError struct {
	Path  string `json:"path" toon:"path"`
	Error string `json:"error" toon:"error"`
}

// Summary aggregates a project analysis.
type Summary struct {
	TotalFiles         int            `json:"total_files" toon:"total_files"`
	TotalLines         int            `json:"total_lines" toon:"total_lines"`
	TotalFunctions     int            `json:"total_functions" toon:"total_functions"`
	TotalIssues        int            `json:"total_issues" toon:"total_issues"`
	FlaggedLines       uint64         `json:"flagged_lines" toon:"flagged_lines"`
	ByLanguage         map[string]int `json:"by_language" toon:"by_language"`
	IssuesByType       map[string]int `json:"issues_by_type" toon:"issues_by_type"`
	BySeverity         map[string]int `json:"by_severity" toon:"by_severity"`
	AvgCyclomatic      float64        `json:"avg_cyclomatic" toon:"avg_cyclomatic"`
	P90Cyclomatic      float64        `json:"p90_cyclomatic" toon:"p90_cyclomatic"`
	MaxCyclomatic      uint32         `json:"max_cyclomatic" toon:"max_cyclomatic"`
	AvgMaintainability float64        `json:"avg_maintainability" toon:"avg_maintainability"`
	SecurityScore      float64        `json:"security_score" toon:"security_score"`
	PerformanceScore   float64        `json:"performance_score" toon:"performance_score"`
	SecurityFindings   int            `json:"security_findings" toon:"security_findings"`
	OverallScore       float64        `json:"overall_score" toon:"overall_score"`
	Grade              Grade          `json:"grade" toon:"grade"`
	SyntaxErrors       int            `json:"syntax_errors" toon:"syntax_errors"`
}

// NewSummary creates an initialized summary.
func NewSummary() Summary {
	return Summary{
		ByLanguage:   make(map[string]int),
		IssuesByType: make(map[string]int),
		BySeverity:   make(map[string]int),
	}
}

// ProjectAnalysis is the result of analyzing a set of files.
type ProjectAnalysis struct {
	Files   []*FileAnalysis `json:"files" toon:"files"`
	Summary Summary         `json:"summary" toon:"summary"`
	Errors  []FileError     `json:"errors,omitempty" toon:"errors,omitempty"`
}
