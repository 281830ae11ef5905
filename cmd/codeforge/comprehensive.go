package main

import (
	"fmt"

	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/internal/service/analysis"
	"github.com/urfave/cli/v2"
)

func comprehensiveCmd() *cli.Command {
	return &cli.Command{
		Name:      "comprehensive",
		Aliases:   []string{"all"},
		Usage:     "Run analysis, review, refactoring, test generation and gates on one file",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{languageFlag()},
		Action:    runComprehensiveCmd,
	}
}

func runComprehensiveCmd(c *cli.Context) error {
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
	result, err := e.svc.Comprehensive(c.Context, src, path, lang)
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(comprehensiveReport(path, result))
}

func comprehensiveReport(path string, r *analysis.Comprehensive) *output.Report {
	fa := r.Analysis
	overview := &output.Section{
		Title: "Analysis",
		Content: fmt.Sprintf("%s, %d code lines, %d functions, cyclomatic %d (%s), maintainability %.1f",
			fa.Language, fa.Metrics.CodeLines, fa.Metrics.Functions, fa.Metrics.Cyclomatic,
			fa.Complexity.Level, fa.Metrics.Maintainability),
		Bullets: []string{
			fmt.Sprintf("security %.0f (%s risk), %d findings", fa.Security.Score, fa.Security.Risk, len(fa.Security.Issues)),
			fmt.Sprintf("performance %.0f (%s optimization need), %d findings", fa.Performance.Score, fa.Performance.Optimization, len(fa.Performance.Issues)),
			fmt.Sprintf("overall %.1f, grade %s", r.Summary.OverallScore, r.Summary.Grade),
		},
	}

	sections := []output.Renderable{overview}
	sections = append(sections, reviewReport(r.Review).Sections...)
	sections = append(sections, planReport(r.Refactoring).Sections...)
	if r.Tests != nil {
		tests := suiteReport(r.Tests)
		// The generated code is left to the testgen command.
		sections = append(sections, tests.Sections[:len(tests.Sections)-1]...)
	}
	sections = append(sections, gateTable(r.Gates))

	return &output.Report{
		Title:    "Comprehensive Report: " + path,
		Sections: sections,
		Data:     r,
	}
}
