// Package scanner resolves command-line paths into the files to analyze.
package scanner

import (
	"path/filepath"

	"github.com/panbanda/codeforge/internal/scanner"
	"github.com/panbanda/codeforge/internal/vcs"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/rs/zerolog"
)

// ScanResult contains the result of a file scan.
type ScanResult struct {
	Files          []string
	LanguageGroups map[parser.Language][]string
	RepoRoot       string
	Skipped        int // files over the size limit
}

// Service provides file scanning functionality.
type Service struct {
	config *config.Config
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanPaths expands files and directories into absolute source file paths.
// An empty list scans the working directory. Files over the configured size
// limit are dropped and counted in Skipped.
func (s *Service) ScanPaths(paths []string) (*ScanResult, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, &PathError{Path: p, Err: err}
		}
		abs = append(abs, a)
	}

	scan := scanner.NewScanner(s.config, scanner.WithLogger(s.logger))
	files, err := scan.ScanPaths(abs)
	if err != nil {
		return nil, &ScanError{Path: paths[0], Err: err}
	}

	files, skipped := scanner.FilterBySize(files, s.config.Analysis.MaxFileSize)
	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Int64("max_size", s.config.Analysis.MaxFileSize).
			Msg("files over size limit skipped")
	}

	return &ScanResult{
		Files:          files,
		LanguageGroups: scanner.GroupByLanguage(files),
		Skipped:        skipped,
	}, nil
}

// ScanChanged scans paths and keeps only the files added or modified since
// ref in the enclosing git repository. An empty ref behaves like ScanPaths.
func (s *Service) ScanChanged(paths []string, ref string) (*ScanResult, error) {
	result, err := s.ScanPaths(paths)
	if err != nil || ref == "" {
		return result, err
	}

	start := "."
	if len(paths) > 0 {
		start = paths[0]
	}
	repo, err := s.openRepo(start)
	if err != nil {
		return nil, err
	}

	changed, err := repo.ChangedFiles(ref)
	if err != nil {
		return nil, &GitError{Err: err}
	}

	before := len(result.Files)
	result.Files = scanner.FilterChanged(result.Files, changed)
	result.LanguageGroups = scanner.GroupByLanguage(result.Files)
	result.RepoRoot = repo.Root()
	s.logger.Debug().Str("ref", ref).Int("scanned", before).Int("changed", len(result.Files)).
		Msg("filtered to changed files")
	return result, nil
}

// Repo opens the git repository enclosing path.
func (s *Service) Repo(path string) (*vcs.Repo, error) {
	return s.openRepo(path)
}

func (s *Service) openRepo(path string) (*vcs.Repo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}
	repo, err := vcs.Open(absPath)
	if err != nil {
		return nil, &GitError{Err: err}
	}
	return repo, nil
}

// PathError indicates an invalid path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// GitError indicates a git lookup failed, usually because the path is not
// inside a repository.
type GitError struct {
	Err error
}

func (e *GitError) Error() string {
	return "git: " + e.Err.Error()
}

func (e *GitError) Unwrap() error {
	return e.Err
}
