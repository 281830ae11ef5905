package review

import (
	"context"
	"strings"
	"testing"

	"github.com/panbanda/codeforge/pkg/analyzer/complexity"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cleanFile() *models.FileAnalysis {
	return &models.FileAnalysis{
		Path:     "clean.py",
		Language: parser.LangPython,
		Metrics:  models.Metrics{TotalLines: 10, CodeLines: 8, CommentLines: 2, Functions: 1, Cyclomatic: 2, Maintainability: 95.2},
		Issues:   []models.Issue{},
		Structure: models.Structure{
			Functions: []models.FunctionMetrics{{Name: "add", StartLine: 1, EndLine: 3, Cyclomatic: 2, HasDoc: true}},
		},
		Complexity:  models.ComplexityReport{Cyclomatic: 2, Level: models.LevelLow, Score: 95.2},
		Security:    models.SecurityReport{Score: 100, Risk: models.LevelLow, Issues: []models.Finding{}},
		Performance: models.PerformanceReport{Score: 100, Optimization: models.LevelLow, Issues: []models.Finding{}},
		Suggestions: []models.Suggestion{},
	}
}

func riskyFile() *models.FileAnalysis {
	fa := cleanFile()
	fa.Path = "risky.py"
	fa.Metrics.Maintainability = 40
	fa.Issues = []models.Issue{
		{Type: models.IssueUnusedImport, Message: "Unused import 'sys'", Line: 2, Severity: models.SeverityLow},
		{Type: models.IssueNaming, Message: "Function 'getValue' should use snake_case", Line: 4, Severity: models.SeverityLow},
		{Type: models.IssueLongFunction, Message: "Function 'run' has 25 statements (max 20)", Line: 9, Severity: models.SeverityMedium},
	}
	fa.Security = models.SecurityReport{Score: 80, Risk: models.LevelLow, Issues: []models.Finding{
		{Rule: "eval", Category: models.CategorySecurity, Message: "Use of eval() can execute arbitrary code", Line: 7, Severity: models.SeverityHigh},
	}}
	fa.Performance = models.PerformanceReport{Score: 85, Optimization: models.LevelLow, Issues: []models.Finding{
		{Rule: "range_len", Category: models.CategoryPerformance, Message: "Iterate directly", Line: 12, Severity: models.SeverityLow},
	}}
	fa.Suggestions = []models.Suggestion{
		{Kind: quality.SuggestMagicNumber, Message: "Replace magic number 1000", Line: 15},
		{Kind: quality.SuggestMissingDoc, Message: "Add a docstring to function 'run'", Line: 9},
	}
	fa.Structure.Functions = []models.FunctionMetrics{
		{Name: "getValue", StartLine: 4, Cyclomatic: 3},
		{Name: "run", StartLine: 9, Cyclomatic: 12, MaxNesting: 4},
	}
	fa.Structure.MaxNestingDepth = 4
	return fa
}

func TestReviewSections(t *testing.T) {
	r := Review(cleanFile())

	require.Len(t, r.Sections, len(Sections))
	for i, name := range Sections {
		assert.Equal(t, name, r.Sections[i].Name)
		assert.Equal(t, name.Title(), r.Sections[i].Title)
		assert.True(t, r.Sections[i].Rated)
		assert.GreaterOrEqual(t, r.Sections[i].Score, 0.0)
		assert.LessOrEqual(t, r.Sections[i].Score, 10.0)
	}

	assert.Equal(t, 10.0, r.Section(SectionCodeQuality).Score)
	assert.Equal(t, 10.0, r.Section(SectionSecurity).Score)
	assert.Equal(t, 9.5, r.Section(SectionMaintainability).Score)
	assert.Equal(t, 10.0, r.Section(SectionTesting).Score)
	assert.Equal(t, 10.0, r.Section(SectionDocumentation).Score)
	assert.Empty(t, r.Improvements)
	assert.Nil(t, r.Section("nonexistent"))
}

func TestReviewCleanVerdict(t *testing.T) {
	r := Review(cleanFile())
	assert.Equal(t, models.GradeA, r.Summary.Grade)
	assert.Equal(t, 9.8, r.Summary.Score)
	assert.Equal(t, "Approved: no issues found", r.Summary.Verdict)
}

func TestReviewRiskyFile(t *testing.T) {
	r := Review(riskyFile())

	cq := r.Section(SectionCodeQuality)
	assert.Equal(t, 8.0, cq.Score)
	assert.Len(t, cq.Findings, 2)
	assert.Contains(t, cq.Recommendations, "Remove unused imports")

	sec := r.Section(SectionSecurity)
	assert.Equal(t, 8.0, sec.Score)
	assert.Contains(t, sec.Findings[0], "Line 7 [high]")
	assert.Contains(t, sec.Recommendations[0], "ast.literal_eval")

	bp := r.Section(SectionBestPractices)
	assert.Equal(t, 8.5, bp.Score)
	assert.Len(t, bp.Findings, 2)

	maint := r.Section(SectionMaintainability)
	assert.Equal(t, 4.0, maint.Score)
	assert.Contains(t, maint.Recommendations, "Split the module into smaller units")
	assert.Contains(t, maint.Recommendations, "Flatten nesting with guard clauses and early returns")

	assert.Equal(t, 5.0, r.Section(SectionTesting).Score)

	docs := r.Section(SectionDocumentation)
	assert.Equal(t, 5.0, docs.Score)

	imp := r.Section(SectionImprovements)
	assert.NotEmpty(t, imp.Recommendations)
	assert.Len(t, imp.Findings, len(r.Improvements))

	assert.Equal(t, 1, r.Summary.BySeverity["high"])
	assert.Equal(t, "Changes requested: 1 high-severity finding", r.Summary.Verdict)
}

func TestImprovementsOrder(t *testing.T) {
	imps := Improvements(riskyFile())
	require.Len(t, imps, 7)

	assert.Equal(t, models.SeverityHigh, imps[0].Severity)
	assert.Equal(t, "eval", imps[0].Kind)
	assert.Equal(t, models.SeverityMedium, imps[1].Severity)

	// Low severity entries are ordered by line.
	var lines []uint32
	for _, imp := range imps[2:] {
		assert.Equal(t, models.SeverityLow, imp.Severity)
		lines = append(lines, imp.Line)
	}
	assert.Equal(t, []uint32{2, 4, 9, 12, 15}, lines)
}

func TestImprovementsCap(t *testing.T) {
	fa := cleanFile()
	for i := 0; i < 15; i++ {
		fa.Issues = append(fa.Issues, models.Issue{Type: models.IssueNaming, Message: "n", Line: uint32(i + 1), Severity: models.SeverityLow})
	}
	assert.Len(t, Improvements(fa), MaxImprovements)
}

func TestReviewSyntaxError(t *testing.T) {
	fa := cleanFile()
	fa.SyntaxError = &parser.SyntaxError{Line: 3}
	fa.Issues = []models.Issue{{Type: models.IssueSyntaxError, Message: "syntax error", Line: 3, Severity: models.SeverityHigh}}

	r := Review(fa)
	assert.Equal(t, 6.0, r.Section(SectionCodeQuality).Score)
	assert.Equal(t, "Changes requested: the file does not parse", r.Summary.Verdict)
}

func TestReviewWithThresholds(t *testing.T) {
	r := Review(riskyFile(), WithThresholds(complexity.Thresholds{Medium: 2, High: 4}))
	assert.Equal(t, 0.0, r.Section(SectionTesting).Score)
	assert.Len(t, r.Section(SectionMaintainability).Findings, 4)
}

func TestReviewAnalyzedSource(t *testing.T) {
	src := "import os\n\n\ndef load(path):\n    \"\"\"Load a file.\"\"\"\n    return eval(open(path).read())\n"
	a := quality.New()
	defer a.Close()
	fa, err := a.AnalyzeSource(context.Background(), []byte(src), "load.py", parser.LangPython)
	require.NoError(t, err)

	r := Review(fa)
	assert.Equal(t, "load.py", r.File)
	assert.Equal(t, parser.LangPython, r.Language)
	assert.Contains(t, strings.Join(r.Section(SectionSecurity).Findings, "\n"), "eval()")
	assert.Contains(t, strings.Join(r.Section(SectionCodeQuality).Findings, "\n"), "Unused import 'os'")
	assert.True(t, strings.HasPrefix(r.Summary.Verdict, "Changes requested"))
}

func TestPRComment(t *testing.T) {
	files := []*models.FileAnalysis{riskyFile(), cleanFile()}
	project := &models.ProjectAnalysis{
		Files:   files,
		Summary: quality.Summarize(files),
		Errors:  []models.FileError{{Path: "bin.dat", Error: "binary file"}},
	}
	gates := workflow.Evaluate(workflow.DefaultGates(), project.Summary, nil)

	out := PRComment(project, gates)
	assert.True(t, strings.HasPrefix(out, "## codeforge report\n"))
	assert.Contains(t, out, "across 2 files")
	assert.Contains(t, out, "### Quality gates: BLOCK")
	assert.Contains(t, out, "| security | block |")
	assert.Contains(t, out, "| coverage | skipped |")
	assert.Contains(t, out, "- **high** `risky.py:7` Use of eval()")
	assert.NotContains(t, out, "magic number", "suggestions are left out")
	assert.Contains(t, out, "1 file could not be analyzed")
	assert.Contains(t, out, "`bin.dat`: binary file")
}

func TestPRCommentWithoutGates(t *testing.T) {
	files := []*models.FileAnalysis{cleanFile()}
	out := PRComment(&models.ProjectAnalysis{Files: files, Summary: quality.Summarize(files)}, nil)
	assert.NotContains(t, out, "Quality gates")
	assert.NotContains(t, out, "Top findings")
	assert.Contains(t, out, "across 1 file with 0 findings")
}
