package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/panbanda/codeforge/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-analyze files as they change",
		ArgsUsage: "[path]",
		Description: `Watches a directory tree and re-analyzes each source file when it is
saved. Only findings the change introduced are printed.

Examples:
  codeforge watch .
  codeforge watch --debounce 1s src`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Wait this long after the last change before analyzing",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	e, err := getEnv(c)
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(getPaths(c)[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	a, err := e.svc.NewAnalyzer()
	if err != nil {
		return err
	}
	defer a.Close()
	reporter := watch.NewReporter(a, c.App.Writer, e.colored())

	project, err := e.analyzePaths(c, []string{absPath})
	switch {
	case errors.Is(err, errNoFiles):
	case err != nil:
		return err
	default:
		reporter.Prime(project)
	}

	watcher, err := watch.NewWatcher(absPath, e.cfg,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithOutput(c.App.ErrWriter, e.colored()),
		watch.WithLogger(e.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	watcher.SetCallback(func(changedPath string) {
		if _, err := reporter.Report(ctx, changedPath); err != nil {
			e.logger.Debug().Str("path", changedPath).Err(err).Msg("re-analysis failed")
		}
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(c.App.ErrWriter, "\nStopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
