package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/pkg/baseline"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Analyze files for complexity, maintainability, security and performance",
		ArgsUsage: "[path...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "baseline",
				Usage: "Hide findings recorded in this baseline file",
			},
			&cli.IntFlag{
				Name:  "top",
				Value: 20,
				Usage: "Findings listed after the table in text output (0 for all)",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}

	project, err := e.analyzeProject(c)
	if err != nil {
		return err
	}

	suppressed := 0
	if path := c.String("baseline"); path != "" {
		b, err := baseline.Load(path)
		if err != nil {
			return fmt.Errorf("load baseline: %w", err)
		}
		filtered := baseline.Filter(project, b)
		project, suppressed = filtered.Project, filtered.Suppressed
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if err := formatter.Output(projectTable(project, formatter.Colored())); err != nil {
		return err
	}

	if formatter.Format() == output.FormatText {
		printFindings(formatter.Writer(), project, c.Int("top"), formatter.Colored())
		if suppressed > 0 {
			say(c, color.FgCyan, "%d baselined findings hidden", suppressed)
		}
		for _, fe := range project.Errors {
			say(c, color.FgYellow, "Skipped %s: %s", relPath(fe.Path), fe.Error)
		}
	}
	return nil
}

func projectTable(project *models.ProjectAnalysis, colored bool) *output.Table {
	rows := make([][]string, 0, len(project.Files))
	for _, fa := range project.Files {
		grade := string(models.GradeFromScore(fa.OverallScore()))
		if colored {
			grade = gradeColor(grade)
		}
		rows = append(rows, []string{
			relPath(fa.Path),
			string(fa.Language),
			fmt.Sprintf("%d", fa.Metrics.CodeLines),
			fmt.Sprintf("%d", fa.Metrics.Cyclomatic),
			fmt.Sprintf("%.1f", fa.Metrics.Maintainability),
			fmt.Sprintf("%.0f", fa.Security.Score),
			fmt.Sprintf("%.0f", fa.Performance.Score),
			fmt.Sprintf("%d", fa.FindingCount()),
			grade,
		})
	}

	s := project.Summary
	return output.NewTable(
		"Code Quality Analysis",
		[]string{"File", "Language", "Code Lines", "Cyclomatic", "Maintainability", "Security", "Performance", "Findings", "Grade"},
		rows,
		[]string{
			fmt.Sprintf("Files: %d", s.TotalFiles),
			fmt.Sprintf("Issues: %d", s.TotalIssues),
			fmt.Sprintf("Max Cyc: %d", s.MaxCyclomatic),
			fmt.Sprintf("Avg MI: %.1f", s.AvgMaintainability),
			fmt.Sprintf("Overall: %.1f (%s)", s.OverallScore, s.Grade),
		},
		project,
	)
}

type locatedFinding struct {
	path     string
	line     uint32
	severity models.Severity
	kind     string
	message  string
}

// printFindings lists issues and heuristic findings, most severe first.
func printFindings(w io.Writer, project *models.ProjectAnalysis, top int, colored bool) {
	var all []locatedFinding
	for _, fa := range project.Files {
		for _, is := range fa.Issues {
			all = append(all, locatedFinding{fa.Path, is.Line, is.Severity, is.Type.String(), is.Message})
		}
		for _, f := range append(append([]models.Finding{}, fa.Security.Issues...), fa.Performance.Issues...) {
			all = append(all, locatedFinding{fa.Path, f.Line, f.Severity, f.Rule, f.Message})
		}
	}
	if len(all) == 0 {
		return
	}

	sort.SliceStable(all, func(i, j int) bool {
		if wi, wj := all[i].severity.Weight(), all[j].severity.Weight(); wi != wj {
			return wi > wj
		}
		if all[i].path != all[j].path {
			return all[i].path < all[j].path
		}
		return all[i].line < all[j].line
	})

	shown := all
	if top > 0 && len(shown) > top {
		shown = shown[:top]
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Findings (%d):\n", len(all))
	for _, f := range shown {
		sev := string(f.severity)
		if colored {
			sev = output.SeverityColor(sev, sev)
		}
		fmt.Fprintf(w, "  %s:%d [%s] %s: %s\n", relPath(f.path), f.line, sev, f.kind, f.message)
	}
	if len(shown) < len(all) {
		fmt.Fprintf(w, "  ... and %d more\n", len(all)-len(shown))
	}
}

func gradeColor(grade string) string {
	switch models.Grade(grade) {
	case models.GradeA, models.GradeB:
		return color.GreenString("%s", grade)
	case models.GradeC:
		return color.YellowString("%s", grade)
	default:
		return color.RedString("%s", grade)
	}
}
