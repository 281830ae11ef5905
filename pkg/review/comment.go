package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/workflow"
)

// MaxCommentFindings caps the findings listed in a pull request comment.
const MaxCommentFindings = 10

type located struct {
	path string
	Improvement
}

// PRComment renders a markdown pull request comment for a project
// analysis. Gates may be nil.
func PRComment(project *models.ProjectAnalysis, gates *workflow.GateResult) string {
	var b strings.Builder
	s := project.Summary

	b.WriteString("## codeforge report\n\n")
	fmt.Fprintf(&b, "**Grade %s** (overall %.1f) across %d file%s with %d finding%s.\n\n",
		s.Grade, s.OverallScore, s.TotalFiles, plural(s.TotalFiles), s.TotalIssues, plural(s.TotalIssues))

	b.WriteString("| Metric | Value |\n| --- | --- |\n")
	fmt.Fprintf(&b, "| Security score | %.1f |\n", s.SecurityScore)
	fmt.Fprintf(&b, "| Performance score | %.1f |\n", s.PerformanceScore)
	fmt.Fprintf(&b, "| Avg maintainability | %.1f |\n", s.AvgMaintainability)
	fmt.Fprintf(&b, "| Avg / max cyclomatic | %.1f / %d |\n", s.AvgCyclomatic, s.MaxCyclomatic)
	b.WriteString("\n")

	if gates != nil {
		fmt.Fprintf(&b, "### Quality gates: %s\n\n", strings.ToUpper(gates.Status.String()))
		b.WriteString("| Gate | Status | Detail |\n| --- | --- | --- |\n")
		for _, g := range gates.Gates {
			status := g.Status.String()
			if g.Skipped {
				status = "skipped"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", g.Name, status, escapeCell(g.Message))
		}
		b.WriteString("\n")
	}

	top := topFindings(project)
	if len(top) > 0 {
		b.WriteString("### Top findings\n\n")
		for _, f := range top {
			fmt.Fprintf(&b, "- **%s** `%s:%d` %s\n", f.Severity, f.path, f.Line, f.Message)
		}
		b.WriteString("\n")
	}

	if len(project.Errors) > 0 {
		fmt.Fprintf(&b, "<details><summary>%d file%s could not be analyzed</summary>\n\n", len(project.Errors), plural(len(project.Errors)))
		for _, e := range project.Errors {
			fmt.Fprintf(&b, "- `%s`: %s\n", e.Path, e.Error)
		}
		b.WriteString("\n</details>\n\n")
	}

	b.WriteString("_Generated by codeforge._\n")
	return b.String()
}

// topFindings ranks issues and heuristic findings across files by severity,
// then path and line. Suggestions are left out.
func topFindings(project *models.ProjectAnalysis) []located {
	var all []located
	for _, fa := range project.Files {
		for _, imp := range Improvements(fa) {
			if imp.Severity == models.SeverityLow && isSuggestion(fa, imp) {
				continue
			}
			all = append(all, located{path: fa.Path, Improvement: imp})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		wi, wj := all[i].Severity.Weight(), all[j].Severity.Weight()
		if wi != wj {
			return wi > wj
		}
		if all[i].path != all[j].path {
			return all[i].path < all[j].path
		}
		return all[i].Line < all[j].Line
	})
	if len(all) > MaxCommentFindings {
		all = all[:MaxCommentFindings]
	}
	return all
}

func isSuggestion(fa *models.FileAnalysis, imp Improvement) bool {
	for _, sg := range fa.Suggestions {
		if sg.Kind == imp.Kind && sg.Line == imp.Line && sg.Message == imp.Message {
			return true
		}
	}
	return false
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
