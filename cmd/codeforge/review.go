package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/pkg/review"
	"github.com/panbanda/codeforge/pkg/workflow"
	"github.com/urfave/cli/v2"
)

func reviewCmd() *cli.Command {
	return &cli.Command{
		Name:      "review",
		Usage:     "Review a file: scored sections and prioritized improvements",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			languageFlag(),
		},
		Action: runReviewCmd,
		Subcommands: []*cli.Command{
			{
				Name:      "pr",
				Usage:     "Write a markdown pull request comment for the analyzed paths",
				ArgsUsage: "[path...]",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:  "coverage",
						Usage: "Measured coverage percent for the coverage gate",
					},
				},
				Action: runReviewPRCmd,
			},
			{
				Name:      "import",
				Usage:     "Split a free-text markdown review into the review sections",
				ArgsUsage: "<review.md>",
				Action:    runReviewImportCmd,
			},
		},
	}
}

func runReviewCmd(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}
	src, lang, err := readSource(path, c.String("language"))
	if err != nil {
		return err
	}

	e, err := getEnv(c)
	if err != nil {
		return err
	}
	report, err := e.svc.Review(c.Context, src, path, lang)
	if err != nil {
		return fmt.Errorf("review %s: %w", path, err)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(reviewReport(report))
}

func reviewReport(r *review.Report) *output.Report {
	sev := make([]string, 0, len(r.Summary.BySeverity))
	for name, n := range r.Summary.BySeverity {
		sev = append(sev, fmt.Sprintf("%s: %d", name, n))
	}
	sort.Strings(sev)

	sections := []output.Renderable{
		&output.Section{
			Title:   "Summary",
			Content: fmt.Sprintf("Score %.1f/10 (%s). %s", r.Summary.Score, r.Summary.Grade, r.Summary.Verdict),
			Bullets: sev,
		},
	}
	for _, s := range r.Sections {
		sections = append(sections, reviewSection(s))
	}

	if len(r.Improvements) > 0 {
		rows := make([][]string, 0, len(r.Improvements))
		for _, imp := range r.Improvements {
			rows = append(rows, []string{fmt.Sprintf("%d", imp.Line), string(imp.Severity), imp.Kind, imp.Message})
		}
		sections = append(sections, output.NewTable("Prioritized Improvements",
			[]string{"Line", "Severity", "Kind", "Message"}, rows, nil, r.Improvements))
	}

	return &output.Report{
		Title:    "Code Review: " + r.File,
		Sections: sections,
		Data:     r,
	}
}

func reviewSection(s review.Section) *output.Section {
	title := s.Title
	if s.Rated {
		title = fmt.Sprintf("%s (%.1f/10)", s.Title, s.Score)
	}
	sec := &output.Section{Title: title, Bullets: s.Findings}
	if len(s.Recommendations) > 0 {
		sec.Sections = []output.Section{{Title: "Recommendations", Bullets: s.Recommendations}}
	}
	return sec
}

func runReviewPRCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	project, err := e.analyzeProject(c)
	if err != nil {
		return err
	}

	var coverage *float64
	if c.IsSet("coverage") {
		v := c.Float64("coverage")
		coverage = &v
	}
	gates := workflow.Evaluate(e.svc.Gates(), project.Summary, coverage)
	comment := review.PRComment(project, gates)

	if path := c.String("output"); path != "" {
		return os.WriteFile(path, []byte(comment), 0o644)
	}
	_, err = fmt.Fprint(c.App.Writer, comment)
	return err
}

func runReviewImportCmd(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	e, err := getEnv(c)
	if err != nil {
		return err
	}
	parsed := review.ParseSections(string(data))

	sections := []output.Renderable{}
	if parsed.Overview != "" {
		sections = append(sections, &output.Section{Title: "Overview", Content: parsed.Overview})
	}
	for _, s := range parsed.Sections {
		sections = append(sections, reviewSection(s))
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(&output.Report{Title: "Imported Review", Sections: sections, Data: parsed})
}
