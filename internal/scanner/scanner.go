// Package scanner discovers the source files an analysis run should cover.
package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/rs/zerolog"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config  *config.Config
	logger  zerolog.Logger
	matcher gitignore.Matcher
	root    string // directory the matcher was built for
}

// Option is a functional option for configuring Scanner.
type Option func(*Scanner)

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config, opts ...Option) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{config: cfg, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// findGitRoot walks up from start to the directory holding .git.
// Returns "" outside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds one matcher from the configured directories and
// patterns plus every .gitignore under the repository root. Gitignore
// patterns are anchored at the git root, so paths are matched relative to it.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern
	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(strings.TrimSuffix(dir, "/")+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	s.root = root
	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
			if err != nil {
				s.logger.Debug().Err(err).Str("root", gitRoot).Msg("reading .gitignore failed")
			} else {
				patterns = append(patterns, gitPatterns...)
				s.root = gitRoot
			}
		}
	}

	s.matcher = gitignore.NewMatcher(patterns)
}

// isExcluded checks if a path matches any exclusion pattern or extension.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if !isDir {
		ext := filepath.Ext(path)
		for _, e := range s.config.Exclude.Extensions {
			if ext == e {
				return true
			}
		}
	}
	if s.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	if rel == "." {
		return false
	}
	return s.matcher.Match(strings.Split(filepath.ToSlash(rel), "/"), isDir)
}

// ScanDir recursively scans a directory for source files in a supported
// language. Paths that resolve outside root through symlinks are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	files := make([]string, 0, 256)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("walk error")
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			info, err := os.Stat(resolved)
			if err != nil || info.IsDir() {
				// WalkDir does not follow directory links.
				return nil
			}
		}

		if d.IsDir() {
			if path != absRoot && s.isExcluded(path, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(path, false) {
			return nil
		}
		if parser.DetectLanguage(path) != parser.LangUnknown {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// ScanPaths expands a mix of files and directories into a sorted,
// de-duplicated file list. Files named explicitly are kept even when their
// language is unknown, so they get the textual analysis.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			files, err := s.ScanDir(p)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		add(abs)
	}

	sort.Strings(out)
	return out, nil
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	if s.matcher == nil || !isWithinRoot(abs, s.root) {
		s.loadExcludePatterns(filepath.Dir(abs))
	}
	if s.isExcluded(abs, false) {
		return false, nil
	}

	return parser.DetectLanguage(path) != parser.LangUnknown, nil
}

// FilterChanged keeps the files that also appear in changed. Both lists
// hold absolute paths.
func FilterChanged(files, changed []string) []string {
	set := make(map[string]bool, len(changed))
	for _, c := range changed {
		set[filepath.Clean(c)] = true
	}
	out := make([]string, 0, len(changed))
	for _, f := range files {
		if set[filepath.Clean(f)] {
			out = append(out, f)
		}
	}
	return out
}

// GroupByLanguage groups files by their detected language.
func GroupByLanguage(files []string) map[parser.Language][]string {
	groups := make(map[parser.Language][]string)
	for _, f := range files {
		lang := parser.DetectLanguage(f)
		if lang != parser.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}

// FilterBySize drops files larger than maxSize and returns how many were
// skipped. A maxSize of 0 keeps everything.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil || info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}
	return filtered, skipped
}

// ErrNoFiles is returned when a scan finds nothing to analyze.
var ErrNoFiles = errors.New("no source files found")
