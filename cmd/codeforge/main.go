package main

import (
	"errors"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// exitBlocked is the exit status of a run stopped by a blocking quality gate.
const exitBlocked = 2

func newApp() *cli.App {
	return &cli.App{
		Name:     "codeforge",
		Usage:    "Multi-language code quality toolkit",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `codeforge analyzes source code for complexity, maintainability, security
and performance risks, then turns the results into code reviews, refactoring
plans, test stubs, CI workflows and quality gates.

Supports: Python, JavaScript, TypeScript, Java, C, C++, C#, Go, Rust, Ruby, PHP, Bash`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"CODEFORGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config)",
				EnvVars: []string{"CODEFORGE_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable caching",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"j"},
				Usage:   "Files analyzed in parallel (0 uses the CPU count)",
				EnvVars: []string{"CODEFORGE_WORKERS"},
			},
			&cli.StringFlag{
				Name:  "changed-since",
				Usage: "Only analyze files changed since this git ref",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Diagnostic log level: trace, debug, info, warn, error",
				EnvVars: []string{"CODEFORGE_LOG_LEVEL"},
			},
		},
		// Exit codes are decided in main so tests can run the app in-process.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			analyzeCmd(),
			reviewCmd(),
			testgenCmd(),
			refactorCmd(),
			comprehensiveCmd(),
			gateCmd(),
			baselineCmd(),
			workflowCmd(),
			initCmd(),
			configCmd(),
			rulesCmd(),
			cacheCmd(),
			watchCmd(),
			mcpCmd(),
			versionCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			if msg := err.Error(); msg != "" {
				color.Red("%s", msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}
