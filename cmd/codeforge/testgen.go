package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/internal/service/analysis"
	"github.com/panbanda/codeforge/pkg/testgen"
	"github.com/urfave/cli/v2"
)

func testgenCmd() *cli.Command {
	return &cli.Command{
		Name:      "testgen",
		Aliases:   []string{"tests"},
		Usage:     "Generate test stubs for a file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			languageFlag(),
			&cli.StringFlag{
				Name:  "framework",
				Usage: "Test framework (default from config for the language)",
			},
			&cli.BoolFlag{
				Name:  "code-only",
				Usage: "Print only the generated test code",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Write the test code next to the source using the language's naming convention",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing test file with --write",
			},
		},
		Action: runTestgenCmd,
	}
}

func runTestgenCmd(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}
	if analysis.IsTestFile(path) {
		return fmt.Errorf("%s is already a test file", path)
	}
	src, lang, err := readSource(path, c.String("language"))
	if err != nil {
		return err
	}
	if !testgen.Supported(lang) {
		return fmt.Errorf("no test framework for %s", lang)
	}

	e, err := getEnv(c)
	if err != nil {
		return err
	}
	fw := testgen.Framework(strings.ToLower(c.String("framework")))
	if fw == "" {
		fw = e.svc.Framework(lang)
	}

	a, err := e.svc.NewAnalyzer()
	if err != nil {
		return err
	}
	defer a.Close()

	suite, err := e.svc.TestGenerator(a).Generate(c.Context, src, path, lang, fw)
	if err != nil {
		return err
	}

	existing := analysis.RelatedTestFile(path, nil)
	if existing != "" {
		say(c, color.FgYellow, "Existing tests found in %s; merge the generated stubs by hand", existing)
	}

	if c.Bool("write") {
		target := analysis.TestFileFor(path)
		if target == "" {
			return fmt.Errorf("no test file convention for %s", path)
		}
		if _, err := os.Stat(target); err == nil && !c.Bool("force") {
			return fmt.Errorf("test file %q already exists (use --force to overwrite)", target)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", target, err)
		}
		if err := os.WriteFile(target, []byte(suite.Code), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		say(c, color.FgGreen, "Wrote %d %s tests to %s", suite.TestCount, suite.Framework, target)
		return nil
	}

	if c.Bool("code-only") {
		_, err := fmt.Fprint(c.App.Writer, suite.Code)
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(suiteReport(suite))
}

func suiteReport(s *testgen.Suite) *output.Report {
	cats := make([]string, 0, len(s.Categories))
	for name, n := range s.Categories {
		cats = append(cats, fmt.Sprintf("%s: %d", name, n))
	}
	sort.Strings(cats)

	rows := make([][]string, 0, len(s.Cases))
	for _, tc := range s.Cases {
		rows = append(rows, []string{tc.Name, string(tc.Category), tc.Target})
	}

	return &output.Report{
		Title: fmt.Sprintf("Generated %s tests: %s", s.Framework, s.File),
		Sections: []output.Renderable{
			&output.Section{
				Title: "Coverage Estimate",
				Content: fmt.Sprintf("%d tests for %d functions and %d classes: %.1f%% (%s)",
					s.Coverage.Tests, s.Coverage.Functions, s.Coverage.Classes, s.Coverage.Percent, s.Coverage.Level),
				Bullets: cats,
			},
			output.NewTable("Test Cases", []string{"Name", "Category", "Target"}, rows, nil, s.Cases),
			&output.Section{Title: "Suggestions", Bullets: s.Suggestions},
			&output.Section{Title: "Code", Content: s.Code},
		},
		Data: s,
	}
}
