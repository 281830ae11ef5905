package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/codeforge/internal/logging"
	"github.com/panbanda/codeforge/internal/output"
	"github.com/panbanda/codeforge/internal/progress"
	"github.com/panbanda/codeforge/internal/service/analysis"
	scannerSvc "github.com/panbanda/codeforge/internal/service/scanner"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/models"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var errNoFiles = errors.New("no source files found")

// env is the per-invocation state shared by commands.
type env struct {
	cfg    *config.Config
	source string // config file, empty for defaults
	logger zerolog.Logger
	svc    *analysis.Service
}

const envKey = "env"

// getEnv loads configuration and builds the logger and analysis service on
// first use. Global flags override config values.
func getEnv(c *cli.Context) (*env, error) {
	if e, ok := c.App.Metadata[envKey].(*env); ok {
		return e, nil
	}

	result, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := result.Config

	level := c.String("log-level")
	if level == "" {
		level = cfg.Output.LogLevel
	}
	logger := logging.New(logging.Options{
		Level:   level,
		Verbose: c.Bool("verbose") || cfg.Output.Verbose,
		NoColor: color.NoColor,
		Out:     c.App.ErrWriter,
	})

	svcOpts := []analysis.Option{analysis.WithConfig(cfg), analysis.WithLogger(logger)}
	if c.Bool("no-cache") {
		svcOpts = append(svcOpts, analysis.WithoutCache())
	}
	if n := c.Int("workers"); n > 0 {
		svcOpts = append(svcOpts, analysis.WithWorkers(n))
	}

	e := &env{
		cfg:    cfg,
		source: result.Source,
		logger: logger,
		svc:    analysis.New(svcOpts...),
	}
	logger.Debug().Str("config", result.Source).Msg("configuration loaded")
	c.App.Metadata[envKey] = e
	return e, nil
}

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

func (e *env) colored() bool {
	return e.cfg.Output.Color && !color.NoColor
}

// formatter writes to --output, or to the app writer when no file is given.
func (e *env) formatter(c *cli.Context) (*output.Formatter, error) {
	format := c.String("format")
	if format == "" {
		format = e.cfg.Output.Format
	}
	if path := c.String("output"); path != "" {
		return output.NewFormatter(output.ParseFormat(format), path, false)
	}
	return output.NewWriterFormatter(output.ParseFormat(format), c.App.Writer, e.colored()), nil
}

// say prints a user-facing status line on the error stream.
func say(c *cli.Context, attr color.Attribute, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !color.NoColor {
		msg = color.New(attr).Sprint(msg)
	}
	fmt.Fprintln(c.App.ErrWriter, msg)
}

// scan resolves paths to source files, honouring --changed-since.
func (e *env) scan(c *cli.Context, paths []string) ([]string, error) {
	svc := scannerSvc.New(scannerSvc.WithConfig(e.cfg), scannerSvc.WithLogger(e.logger))
	result, err := svc.ScanChanged(paths, c.String("changed-since"))
	if err != nil {
		return nil, err
	}
	if result.Skipped > 0 {
		say(c, color.FgYellow, "Skipped %d files over the size limit", result.Skipped)
	}
	if len(result.Files) == 0 {
		return nil, errNoFiles
	}
	return result.Files, nil
}

// analyzeProject scans the positional paths and analyzes every file with a
// progress bar on the error stream.
func (e *env) analyzeProject(c *cli.Context) (*models.ProjectAnalysis, error) {
	return e.analyzePaths(c, getPaths(c))
}

func (e *env) analyzePaths(c *cli.Context, paths []string) (*models.ProjectAnalysis, error) {
	files, err := e.scan(c, paths)
	if err != nil {
		return nil, err
	}

	bar := progress.NewBarTo(c.App.ErrWriter, "Analyzing...", len(files))
	project, err := e.svc.AnalyzeFiles(c.Context, files, bar.Update)
	if err != nil {
		bar.FinishError(err)
		return nil, err
	}
	bar.FinishSuccess()

	for _, fe := range project.Errors {
		e.logger.Warn().Str("path", fe.Path).Str("error", fe.Error).Msg("file skipped")
	}
	return project, nil
}

// readSource reads one file and resolves its language. An explicit
// language name wins over detection from the extension.
func readSource(path, lang string) ([]byte, parser.Language, error) {
	l := parser.DetectLanguage(path)
	if lang != "" {
		l = parser.ParseLanguageName(lang)
	}
	if l == parser.LangUnknown {
		if lang != "" {
			return nil, l, fmt.Errorf("unknown language %q", lang)
		}
		return nil, l, fmt.Errorf("cannot detect language of %s (use --language)", path)
	}

	src, err := source.NewFilesystem().Read(path)
	if err != nil {
		return nil, l, fmt.Errorf("read %s: %w", path, err)
	}
	return src, l, nil
}

func languageFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "language",
		Aliases: []string{"l"},
		Usage:   "Language name, detected from the extension when empty",
	}
}

// fileArg returns the single file argument of a command.
func fileArg(c *cli.Context) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("%s expects exactly one file", c.Command.Name)
	}
	return c.Args().First(), nil
}

// relPath shortens path relative to the working directory for display.
func relPath(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
