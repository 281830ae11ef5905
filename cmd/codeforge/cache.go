package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/internal/output"
	"github.com/urfave/cli/v2"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the analysis result cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache location, entry count and size",
				Action: runCacheStatsCmd,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached results",
				Action: runCacheClearCmd,
			},
		},
	}
}

func runCacheStatsCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	store, err := e.svc.Cache()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if !store.Enabled() {
		say(c, color.FgYellow, "Cache is disabled")
		return nil
	}
	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("read cache: %w", err)
	}

	rows := [][]string{
		{"Directory", stats.Dir},
		{"Entries", fmt.Sprintf("%d", stats.Entries)},
		{"Total size", formatBytes(stats.TotalSize)},
		{"Oldest entry", formatAge(stats.OldestAge)},
		{"Newest entry", formatAge(stats.NewestAge)},
	}
	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.NewTable("Cache", []string{"Property", "Value"}, rows, nil, stats))
}

func runCacheClearCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	store, err := e.svc.Cache()
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	if !store.Enabled() {
		say(c, color.FgYellow, "Cache is disabled")
		return nil
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	say(c, color.FgGreen, "Cache cleared")
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatAge(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
