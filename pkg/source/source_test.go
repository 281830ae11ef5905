package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ContentSource = (*FilesystemSource)(nil)
	_ ContentSource = (*TreeSource)(nil)
)

func TestFilesystemSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')\n"), 0o644))

	src := NewFilesystem()

	content, err := src.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(content))

	_, err = src.Read(filepath.Join(dir, "nonexistent.txt"))
	assert.Error(t, err)
}

func TestMemorySource(t *testing.T) {
	src, err := NewMemory(map[string]string{
		"src/app.js": "var x = 1;\n",
		"README.md":  "# readme\n",
	})
	require.NoError(t, err)

	content, err := src.Read("src/app.js")
	require.NoError(t, err)
	assert.Equal(t, "var x = 1;\n", string(content))

	info, err := src.Stat("README.md")
	require.NoError(t, err)
	assert.Equal(t, int64(9), info.Size())
}

func TestNewFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "a.go", []byte("package a"), 0o644))

	src := NewFs(fs)
	content, err := src.Read("a.go")
	require.NoError(t, err)
	assert.Equal(t, "package a", string(content))
	assert.Same(t, fs, src.Fs())
}

type fakeTree map[string]string

func (f fakeTree) File(path string) ([]byte, error) {
	if c, ok := f[path]; ok {
		return []byte(c), nil
	}
	return nil, os.ErrNotExist
}

func TestTreeSource(t *testing.T) {
	src := NewTree(fakeTree{"pkg/a.go": "package pkg"})

	content, err := src.Read("pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg", string(content))

	_, err = src.Read("missing.go")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
