package main

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli/v2"
)

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "codeforge %s\n", version)
			fmt.Fprintf(c.App.Writer, "  commit: %s\n", commit)
			fmt.Fprintf(c.App.Writer, "  built:  %s\n", date)
			fmt.Fprintf(c.App.Writer, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
