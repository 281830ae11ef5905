package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/pkg/analyzer/quality"
	"github.com/panbanda/codeforge/pkg/baseline"
	"github.com/panbanda/codeforge/pkg/models"
)

// Reporter re-analyzes changed files and prints a summary line plus the
// findings that were not present in the previous analysis of that file.
type Reporter struct {
	analyzer *quality.Analyzer
	out      io.Writer
	colored  bool

	mu    sync.Mutex
	last  map[string]*baseline.Baseline
	outMu sync.Mutex
}

// NewReporter creates a Reporter writing to out.
func NewReporter(a *quality.Analyzer, out io.Writer, colored bool) *Reporter {
	return &Reporter{
		analyzer: a,
		out:      out,
		colored:  colored,
		last:     make(map[string]*baseline.Baseline),
	}
}

// Prime records the current findings of project so the first change to a
// file only reports what the change introduced.
func (r *Reporter) Prime(project *models.ProjectAnalysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, fa := range project.Files {
		r.last[fa.Path] = baseline.New(single(fa))
	}
}

// Report analyzes path and prints the result. It returns the new findings.
// Each report reaches out in a single write.
func (r *Reporter) Report(ctx context.Context, path string) (*models.FileAnalysis, error) {
	var buf bytes.Buffer
	defer r.flush(&buf)

	fa, err := r.analyzer.AnalyzeFile(ctx, path)
	if err != nil {
		r.printf(&buf, color.FgRed, "  %v\n", err)
		return nil, err
	}

	r.mu.Lock()
	prev := r.last[path]
	r.last[path] = baseline.New(single(fa))
	r.mu.Unlock()

	fresh := fa
	if prev != nil {
		fresh = baseline.Filter(single(fa), prev).Project.Files[0]
	}

	r.printf(&buf, gradeColor(fa), "  grade %s  overall %.1f  maintainability %.1f  cyclomatic %d  findings %d\n",
		models.GradeFromScore(fa.OverallScore()), fa.OverallScore(), fa.Metrics.Maintainability,
		fa.Metrics.Cyclomatic, fa.FindingCount())
	if fa.SyntaxError != nil {
		r.printf(&buf, color.FgRed, "  syntax error: %s\n", fa.SyntaxError.Error())
	}

	for _, is := range fresh.Issues {
		r.printf(&buf, severityColor(is.Severity), "  + %s:%d [%s] %s\n", path, is.Line, is.Severity, is.Message)
	}
	for _, findings := range [][]models.Finding{fresh.Security.Issues, fresh.Performance.Issues} {
		for _, f := range findings {
			r.printf(&buf, severityColor(f.Severity), "  + %s:%d [%s] %s\n", path, f.Line, f.Severity, f.Message)
		}
	}
	if prev != nil && fresh.FindingCount() == 0 {
		r.printf(&buf, color.FgGreen, "  no new findings\n")
	}
	return fresh, nil
}

func (r *Reporter) printf(buf *bytes.Buffer, attr color.Attribute, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if r.colored {
		msg = color.New(attr).Sprint(msg)
	}
	buf.WriteString(msg)
}

func (r *Reporter) flush(buf *bytes.Buffer) {
	if buf.Len() == 0 {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	_, _ = r.out.Write(buf.Bytes())
}

func single(fa *models.FileAnalysis) *models.ProjectAnalysis {
	return &models.ProjectAnalysis{Files: []*models.FileAnalysis{fa}}
}

func gradeColor(fa *models.FileAnalysis) color.Attribute {
	switch models.GradeFromScore(fa.OverallScore()) {
	case models.GradeA, models.GradeB:
		return color.FgGreen
	case models.GradeC:
		return color.FgYellow
	default:
		return color.FgRed
	}
}

func severityColor(s models.Severity) color.Attribute {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return color.FgRed
	case models.SeverityMedium:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}
