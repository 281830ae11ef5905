package main

import (
	"github.com/panbanda/codeforge/internal/output"
	"github.com/urfave/cli/v2"
)

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "List the active security and performance heuristics",
		Description: `Lists every rule the analyzers apply. Rules named in heuristics.disabled
are left out.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "patterns",
				Usage: "Include the regular expression of each rule",
			},
		},
		Action: runRulesCmd,
	}
}

func runRulesCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	rules := e.svc.Heuristics().Rules()

	headers := []string{"ID", "Category", "Severity", "Message"}
	if c.Bool("patterns") {
		headers = append(headers, "Pattern")
	}
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		row := []string{r.ID, string(r.Category), string(r.Severity), r.Message}
		if c.Bool("patterns") {
			row = append(row, r.Pattern())
		}
		rows = append(rows, row)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.NewTable("Heuristic Rules", headers, rows, nil, rules))
}
