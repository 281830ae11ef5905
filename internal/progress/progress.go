// Package progress draws terminal progress bars for long analysis runs.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Bar wraps a progress bar for file processing.
type Bar struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer
}

// NewSpinner creates a spinner for operations with unknown total count.
func NewSpinner(label string) *Bar {
	return NewSpinnerTo(os.Stderr, label)
}

// NewSpinnerTo is NewSpinner writing to out.
func NewSpinnerTo(out io.Writer, label string) *Bar {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return &Bar{bar: bar, label: label, out: out}
}

// NewBar creates a progress bar with the given label and total count.
func NewBar(label string, total int) *Bar {
	return NewBarTo(os.Stderr, label, total)
}

// NewBarTo is NewBar writing to out.
func NewBarTo(out io.Writer, label string, total int) *Bar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Bar{bar: bar, label: label, out: out}
}

// Tick increments the progress by 1. Safe for concurrent use.
func (b *Bar) Tick() {
	_ = b.bar.Add(1)
}

// Update moves the bar to done of total. It matches analyzer.ProgressFunc
// so a bar can be handed to an analyzer tracker directly.
func (b *Bar) Update(done, total int, _ string) {
	if total > 0 && int64(total) != b.bar.GetMax64() {
		b.bar.ChangeMax(total)
	}
	_ = b.bar.Set(done)
}

// Current returns the current count.
func (b *Bar) Current() int64 {
	return b.bar.State().CurrentNum
}

// FinishSuccess clears the bar completely (no output).
func (b *Bar) FinishSuccess() {
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}

// FinishSkipped clears the bar and prints a skip message.
func (b *Bar) FinishSkipped(reason string) {
	b.FinishSuccess()
	fmt.Fprintf(b.out, "  %s skipped (%s)\n", b.label, reason)
}

// FinishError clears the bar and prints an error message.
func (b *Bar) FinishError(err error) {
	b.FinishSuccess()
	fmt.Fprintf(b.out, "  %s error: %v\n", b.label, err)
}
