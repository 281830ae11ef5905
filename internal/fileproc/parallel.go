// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/panbanda/codeforge/pkg/analyzer"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/panbanda/codeforge/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

var (
	// ErrTooLarge is recorded for files over the configured size limit.
	ErrTooLarge = errors.New("file exceeds maximum size")
	// ErrBinary is recorded for files that look like binary data.
	ErrBinary = errors.New("binary file")
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Sorted returns the collected errors ordered by path.
func (e *ProcessingErrors) Sorted() []ProcessingError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]ProcessingError, len(e.Errors))
	copy(out, e.Errors)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap returns nil (ProcessingErrors doesn't wrap a single error).
func (e *ProcessingErrors) Unwrap() error {
	return nil
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// Options controls a parallel run.
type Options struct {
	// Workers caps concurrency. Zero means 2x NumCPU.
	Workers int
	// MaxSize skips files larger than this many bytes. Zero disables the limit.
	MaxSize int64
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// FileFunc processes one file with a parser owned by the calling worker.
type FileFunc[T any] func(ctx context.Context, p *parser.Parser, path string, content []byte) (T, error)

// MapSource reads each file through src and processes it in parallel.
// Every worker holds one parser for its lifetime. Results keep the order of
// files; failed, oversized and binary files are left out and reported in the
// returned errors, which is nil when nothing failed.
// Progress is tracked via context using analyzer.WithTracker.
func MapSource[T any](ctx context.Context, files []string, src source.ContentSource, opts Options, fn FileFunc[T]) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	workers := opts.workers()
	parsers := newParserPool(workers)
	defer parsers.close()

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			defer func() {
				if tracker != nil {
					tracker.Tick(path)
				}
			}()

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return ctx.Err()
			default:
			}

			content, err := src.Read(path)
			if err != nil {
				errs.Add(path, err)
				return nil
			}
			if opts.MaxSize > 0 && int64(len(content)) > opts.MaxSize {
				errs.Add(path, ErrTooLarge)
				return nil
			}
			if IsBinary(content) {
				errs.Add(path, ErrBinary)
				return nil
			}

			psr := parsers.get()
			defer parsers.put(psr)

			result, err := fn(ctx, psr, path, content)
			if err != nil {
				errs.Add(path, err)
				return nil // Don't stop pool on individual file errors
			}
			slots[i] = result
			ok[i] = true
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	results := make([]T, 0, len(files))
	for i := range slots {
		if ok[i] {
			results = append(results, slots[i])
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// IsBinary reports whether content has a NUL byte in its first 8000 bytes.
func IsBinary(content []byte) bool {
	head := content
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// parserPool hands out one parser per worker and reuses it across files.
type parserPool struct {
	ch chan *parser.Parser
}

func newParserPool(size int) *parserPool {
	return &parserPool{ch: make(chan *parser.Parser, size)}
}

func (pp *parserPool) get() *parser.Parser {
	select {
	case p := <-pp.ch:
		return p
	default:
		return parser.New()
	}
}

func (pp *parserPool) put(p *parser.Parser) {
	select {
	case pp.ch <- p:
	default:
		p.Close()
	}
}

func (pp *parserPool) close() {
	close(pp.ch)
	for p := range pp.ch {
		p.Close()
	}
}
