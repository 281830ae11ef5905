package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/internal/vcs"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/refactor"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/urfave/cli/v2"
)

func refactorCmd() *cli.Command {
	return &cli.Command{
		Name:      "refactor",
		Usage:     "Suggest a prioritized refactoring plan for a file",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{languageFlag()},
		Action:    runRefactorCmd,
		Subcommands: []*cli.Command{
			{
				Name:  "verify",
				Usage: "Check that a refactored file keeps its functions, parses and is no more complex",
				Description: `Compares two versions of a file. Pass both files, or one file and
--against to compare the working copy with a git revision.

Examples:
  codeforge refactor verify old.py new.py
  codeforge refactor verify --against HEAD cart.py`,
				ArgsUsage: "<original> <refactored> | --against <ref> <file>",
				Flags: []cli.Flag{
					languageFlag(),
					&cli.StringFlag{
						Name:  "against",
						Usage: "Git revision holding the original version",
					},
				},
				Action: runRefactorVerifyCmd,
			},
		},
	}
}

func runRefactorCmd(c *cli.Context) error {
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
	a, err := e.svc.NewAnalyzer()
	if err != nil {
		return err
	}
	defer a.Close()

	fa, err := a.AnalyzeSource(c.Context, src, path, lang)
	if err != nil {
		return err
	}
	plan := e.svc.Refactorer(a).Plan(fa)

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(planReport(plan))
}

func planReport(p *refactor.Plan) *output.Report {
	rows := make([][]string, 0, len(p.Suggestions))
	for _, s := range p.Suggestions {
		line := ""
		if s.Line > 0 {
			line = fmt.Sprintf("%d", s.Line)
		}
		rows = append(rows, []string{string(s.Priority), string(s.Kind), s.Target, line, s.Message})
	}

	targets := output.NewTable("Targets",
		[]string{"Metric", "Current", "Target"},
		[][]string{
			{"Max function cyclomatic", fmt.Sprintf("%d", p.Current.MaxFunctionCyclomatic), fmt.Sprintf("%d", p.Target.MaxFunctionCyclomatic)},
			{"Maintainability", fmt.Sprintf("%.1f", p.Current.Maintainability), fmt.Sprintf("%.1f", p.Target.Maintainability)},
			{"Max nesting", fmt.Sprintf("%d", p.Current.MaxNesting), fmt.Sprintf("%d", p.Target.MaxNesting)},
			{"Max params", fmt.Sprintf("%d", p.Current.MaxParams), fmt.Sprintf("%d", p.Target.MaxParams)},
			{"Issues", fmt.Sprintf("%d", p.Current.Issues), fmt.Sprintf("%d", p.Target.Issues)},
		},
		nil, nil)

	steps := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = fmt.Sprintf("%d. %s", i+1, s)
	}

	return &output.Report{
		Title: "Refactoring Plan: " + p.File,
		Sections: []output.Renderable{
			output.NewTable("Suggestions", []string{"Priority", "Kind", "Target", "Line", "Message"}, rows, nil, p.Suggestions),
			targets,
			&output.Section{Title: "Steps", Content: strings.Join(steps, "\n")},
		},
		Data: p,
	}
}

func runRefactorVerifyCmd(c *cli.Context) error {
	var (
		original []byte
		lang     = c.String("language")
		path     string
		err      error
	)

	if ref := c.String("against"); ref != "" {
		if path, err = fileArg(c); err != nil {
			return err
		}
		if original, err = readAtRevision(path, ref); err != nil {
			return err
		}
	} else {
		if c.Args().Len() != 2 {
			return fmt.Errorf("verify expects <original> <refactored>, or --against <ref> <file>")
		}
		path = c.Args().Get(1)
		if original, _, err = readSource(c.Args().Get(0), lang); err != nil {
			return err
		}
	}

	refactored, l, err := readSource(path, lang)
	if err != nil {
		return err
	}

	e, err := getEnv(c)
	if err != nil {
		return err
	}
	a, err := e.svc.NewAnalyzer()
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := e.svc.Refactorer(a).Verify(c.Context, original, refactored, l)
	if err != nil {
		return err
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	if err := formatter.Output(verificationReport(path, v)); err != nil {
		return err
	}

	if !v.Success {
		return cli.Exit("refactoring verification failed", 1)
	}
	return nil
}

// readAtRevision reads path as it was at ref in the enclosing git repository.
func readAtRevision(path, ref string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %s: %w", path, err)
	}
	repo, err := vcs.Open(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	tree, err := repo.Tree(ref)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(repo.Root(), abs)
	if err != nil {
		return nil, err
	}

	data, err := source.NewTree(tree).Read(rel)
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", rel, ref, err)
	}
	return data, nil
}

func verificationReport(path string, v *refactor.Verification) *output.Report {
	status := "PASSED"
	if !v.Success {
		status = "FAILED"
	}

	metrics := func(m models.Metrics) []string {
		return []string{
			fmt.Sprintf("%d", m.Cyclomatic),
			fmt.Sprintf("%.1f", m.Maintainability),
			fmt.Sprintf("%d", m.CodeLines),
			fmt.Sprintf("%d", m.Functions),
		}
	}
	rows := [][]string{
		append([]string{"Before"}, metrics(v.Before)...),
		append([]string{"After"}, metrics(v.After)...),
		{"Delta",
			fmt.Sprintf("%+d", v.Delta.Cyclomatic),
			fmt.Sprintf("%+.1f", v.Delta.Maintainability),
			fmt.Sprintf("%+d", v.Delta.CodeLines),
			fmt.Sprintf("%+d", len(v.Added)-len(v.Missing))},
	}

	functions := []string{}
	for _, name := range v.Missing {
		functions = append(functions, "missing: "+name)
	}
	for _, name := range v.Added {
		functions = append(functions, "added: "+name)
	}
	functions = append(functions, fmt.Sprintf("preserved: %d", len(v.Preserved)))

	return &output.Report{
		Title: fmt.Sprintf("Refactoring Verification %s: %s", status, path),
		Sections: []output.Renderable{
			output.NewTable("Metrics", []string{"", "Cyclomatic", "Maintainability", "Code Lines", "Functions"}, rows, nil, nil),
			&output.Section{Title: "Functions", Bullets: functions},
			&output.Section{Title: "Problems", Bullets: v.Problems},
		},
		Data: v,
	}
}
