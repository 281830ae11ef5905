// Package source abstracts where file content is read from.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/panbanda/codeforge/internal/vcs"
	"github.com/spf13/afero"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from an afero filesystem.
type FilesystemSource struct {
	fs afero.Fs
}

// NewFilesystem creates a source that reads from the local filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{fs: afero.NewOsFs()}
}

// NewFs creates a source over any afero filesystem.
func NewFs(fs afero.Fs) *FilesystemSource {
	return &FilesystemSource{fs: fs}
}

// NewMemory creates an in-memory source holding the given files.
func NewMemory(files map[string]string) (*FilesystemSource, error) {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		if dir := filepath.Dir(path); dir != "." {
			if err := fs.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return &FilesystemSource{fs: fs}, nil
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

// Stat returns file info for path.
func (f *FilesystemSource) Stat(path string) (os.FileInfo, error) {
	return f.fs.Stat(path)
}

// Fs exposes the underlying filesystem.
func (f *FilesystemSource) Fs() afero.Fs {
	return f.fs
}

// TreeSource reads files from a git revision.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree vcs.Tree
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree vcs.Tree) *TreeSource {
	return &TreeSource{tree: tree}
}

// Read implements ContentSource. Paths are relative to the repository root.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tree.File(filepath.ToSlash(path))
}
