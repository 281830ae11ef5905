package main

import (
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/pkg/baseline"
	"github.com/urfave/cli/v2"
)

const defaultBaselinePath = ".codeforge/baseline.json"

func baselineCmd() *cli.Command {
	return &cli.Command{
		Name:      "baseline",
		Usage:     "Record current findings so analyze and gate only report new ones",
		ArgsUsage: "[path...]",
		Description: `Analyzes the paths and stores a fingerprint of every issue and finding.
Pass the file to analyze --baseline or gate --baseline to hide them.

Examples:
  codeforge baseline .
  codeforge gate --baseline .codeforge/baseline.json .`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Value: defaultBaselinePath,
				Usage: "Baseline file to write",
			},
		},
		Action: runBaselineCmd,
	}
}

func runBaselineCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	project, err := e.analyzeProject(c)
	if err != nil {
		return err
	}

	path := c.String("file")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := baseline.Save(path, project); err != nil {
		return err
	}

	total := 0
	for _, fa := range project.Files {
		total += fa.FindingCount()
	}
	say(c, color.FgGreen, "Recorded %d findings from %d files in %s", total, len(project.Files), path)
	return nil
}
