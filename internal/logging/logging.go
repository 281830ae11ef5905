// Package logging builds the diagnostic logger shared by the CLI and the
// MCP server. Diagnostics are off unless a level is requested.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the logger level and destination.
type Options struct {
	Level   string // trace, debug, info, warn, error; empty means disabled
	Verbose bool   // debug level when Level is empty
	NoColor bool
	Out     io.Writer // defaults to stderr
}

// New returns a console logger on stderr, or a disabled logger when neither
// a level nor verbose output was requested. An unknown level falls back to info.
func New(opts Options) zerolog.Logger {
	level := strings.TrimSpace(strings.ToLower(opts.Level))
	if level == "" {
		if !opts.Verbose {
			return zerolog.Nop()
		}
		level = "debug"
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if lvl == zerolog.Disabled {
		return zerolog.Nop()
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	w := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    opts.NoColor,
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
