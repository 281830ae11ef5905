package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/workflow"
	"github.com/urfave/cli/v2"
)

func workflowCmd() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Generate a GitHub Actions workflow that runs codeforge in CI",
		Description: `Prints the workflow YAML, or writes it with --write.

Examples:
  codeforge workflow --language go
  codeforge workflow --features quality,tests --branches main --write
  codeforge workflow env`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "language",
				Aliases: []string{"l"},
				Value:   string(parser.LangPython),
				Usage:   "Project language",
			},
			&cli.StringSliceFlag{
				Name:  "features",
				Usage: "quality, security, tests, coverage, artifacts (default all)",
			},
			&cli.StringSliceFlag{
				Name:  "branches",
				Usage: "Branches that trigger the workflow (default main, develop)",
			},
			&cli.StringFlag{
				Name:  "runtime-version",
				Usage: "Language runtime version (default per language)",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Write to .github/workflows/codeforge.yml",
			},
		},
		Action: runWorkflowCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "env",
				Usage:  "List the environment variables codeforge reads",
				Action: runWorkflowEnvCmd,
			},
		},
	}
}

func runWorkflowCmd(c *cli.Context) error {
	opts := workflow.DefaultOptions()
	opts.Language = parser.ParseLanguageName(c.String("language"))
	if opts.Language == parser.LangUnknown {
		return fmt.Errorf("unknown language %q", c.String("language"))
	}
	features, err := workflow.ParseFeatures(c.StringSlice("features"))
	if err != nil {
		return err
	}
	opts.Features = features
	if branches := c.StringSlice("branches"); len(branches) > 0 {
		opts.Branches = branches
	}
	opts.RuntimeVersion = c.String("runtime-version")

	data, err := workflow.Workflow(opts)
	if err != nil {
		return err
	}

	target := c.String("output")
	if c.Bool("write") && target == "" {
		target = filepath.Join(".github", "workflows", "codeforge.yml")
	}
	if target == "" {
		_, err := c.App.Writer.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}
	say(c, color.FgGreen, "Created %s", target)
	return nil
}

func runWorkflowEnvCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	vars := workflow.EnvVars()
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.Name, v.Description})
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.NewTable("Environment Variables", []string{"Name", "Description"}, rows, nil, vars))
}
