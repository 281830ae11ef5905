// Package analyzer holds the contracts shared by the analysis packages.
package analyzer

import "context"

// FileAnalyzer analyzes a set of files and produces one aggregate result.
// The quality analyzer implements it for project analysis; agents consume
// its output rather than re-reading files.
type FileAnalyzer[T any] interface {
	// Analyze processes the files and returns the result. Cancelling ctx
	// stops scheduling new files; files already finished are kept.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
