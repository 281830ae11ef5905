package main

import (
	"github.com/panbanda/codeforge/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes codeforge's
analysis, review, refactoring and test generation as tools that LLMs can
invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "codeforge": {
        "command": "codeforge",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_code           Metrics, complexity, security and performance of one snippet
  - analyze_paths          Project-wide analysis with a summary and grade
  - review_code            Structured code review with recommendations
  - generate_tests         Test suite stubs for a target framework
  - suggest_refactoring    Refactoring plan with targets and steps
  - verify_refactoring     Compare original and refactored code
  - generate_workflow      GitHub Actions workflow YAML
  - evaluate_gates         Quality gate decision for a set of paths`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version,
		mcpserver.WithService(e.svc),
		mcpserver.WithLogger(e.logger),
	)
	return server.Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(append(data, '\n'))
	return err
}
