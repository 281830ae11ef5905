package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/panbanda/codeforge/pkg/config"
	"github.com/panbanda/codeforge/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relPaths(t *testing.T, root string, files []string) []string {
	t.Helper()
	absRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(absRoot, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	sort.Strings(out)
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.config)

	cfg := config.DefaultConfig()
	assert.Same(t, cfg, NewScanner(cfg).config)
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.go":          "package main\n",
		"util/helper.py":   "# python\n",
		"internal/core.rs": "fn main() {}\n",
		"README.md":        "# readme\n",
		"notes.txt":        "plain\n",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"internal/core.rs", "main.go", "util/helper.py"}, relPaths(t, tmpDir, result))
	for _, f := range result {
		assert.True(t, filepath.IsAbs(f), f)
	}
}

func TestScanDirExcludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"app.js":                  "let a = 1;\n",
		"app.min.js":              "let a=1;\n",
		"vendor/lib.go":           "package lib\n",
		"src/node_modules/x/i.js": "module.exports = 1;\n",
		"src/custom_skip/a.py":    "x = 1\n",
		"api/service.pb.go":       "package api\n",
		"src/keep.py":             "x = 1\n",
		".codeforge/cache/tmp.py": "x = 1\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Dirs = append(cfg.Exclude.Dirs, "custom_skip")

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.js", "src/keep.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirExcludesExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"a.py": "x = 1\n",
		"b.js": "let b;\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Extensions = []string{".js"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, relPaths(t, tmpDir, result))
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755))
	writeTree(t, tmpDir, map[string]string{
		".gitignore":        "generated/\n*_gen.go\n",
		"main.go":           "package main\n",
		"types_gen.go":      "package main\n",
		"generated/out.py":  "x = 1\n",
		"pkg/.gitignore":    "local.py\n",
		"pkg/local.py":      "x = 1\n",
		"pkg/shared.py":     "x = 1\n",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "pkg/shared.py"}, relPaths(t, tmpDir, result))

	t.Run("subdirectory scan uses repository ignores", func(t *testing.T) {
		result, err := NewScanner(nil).ScanDir(filepath.Join(tmpDir, "pkg"))
		require.NoError(t, err)
		assert.Equal(t, []string{"pkg/shared.py"}, relPaths(t, tmpDir, result))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Exclude.Gitignore = false
		result, err := NewScanner(cfg).ScanDir(tmpDir)
		require.NoError(t, err)
		assert.Len(t, result, 5)
	})
}

func TestScanDirEmptyDirectory(t *testing.T) {
	result, err := NewScanner(nil).ScanDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestScanDirWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	outside := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"main.go": "package main\n"})
	writeTree(t, outside, map[string]string{"secret.py": "x = 1\n"})

	if err := os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(tmpDir, "link.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "main.go"), filepath.Join(tmpDir, "alias.go")))
	require.NoError(t, os.Symlink(filepath.Join(tmpDir, "missing.go"), filepath.Join(tmpDir, "dangling.go")))

	result, err := NewScanner(nil).ScanDir(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"alias.go", "main.go"}, relPaths(t, tmpDir, result))
}

func TestScanPaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/a.py":     "x = 1\n",
		"src/b.go":     "package b\n",
		"script.weird": "echo\n",
	})
	t.Chdir(tmpDir)

	result, err := NewScanner(nil).ScanPaths([]string{"src", "script.weird", "src/a.py"})
	require.NoError(t, err)
	assert.Equal(t, []string{"script.weird", "src/a.py", "src/b.go"}, relPaths(t, tmpDir, result))

	_, err = NewScanner(nil).ScanPaths([]string{"nope"})
	assert.Error(t, err)
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.go":    "package main\n",
		"app.min.js": "x\n",
		"notes.txt":  "x\n",
	})
	s := NewScanner(nil)

	ok, err := s.ScanFile(filepath.Join(tmpDir, "main.go"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.ScanFile(filepath.Join(tmpDir, "app.min.js"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ScanFile(filepath.Join(tmpDir, "notes.txt"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ScanFile(tmpDir)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ScanFile(filepath.Join(tmpDir, "missing.go"))
	assert.Error(t, err)
}

func TestFilterChanged(t *testing.T) {
	files := []string{"/r/a.py", "/r/b.py", "/r/c.py"}
	assert.Equal(t, []string{"/r/a.py", "/r/c.py"}, FilterChanged(files, []string{"/r/c.py", "/r/a.py", "/r/z.py"}))
	assert.Empty(t, FilterChanged(files, nil))
}

func TestGroupByLanguage(t *testing.T) {
	groups := GroupByLanguage([]string{"a.go", "b.go", "c.py", "d.txt"})
	assert.Len(t, groups[parser.LangGo], 2)
	assert.Len(t, groups[parser.LangPython], 1)
	assert.NotContains(t, groups, parser.LangUnknown)
	assert.Empty(t, GroupByLanguage(nil))
}

func TestFilterBySize(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"small.py": "x = 1\n",
		"big.py":   string(make([]byte, 2048)),
	})
	small := filepath.Join(tmpDir, "small.py")
	big := filepath.Join(tmpDir, "big.py")
	missing := filepath.Join(tmpDir, "missing.py")

	kept, skipped := FilterBySize([]string{small, big, missing}, 1024)
	assert.Equal(t, []string{small}, kept)
	assert.Equal(t, 2, skipped)

	kept, skipped = FilterBySize([]string{small, big}, 0)
	assert.Len(t, kept, 2)
	assert.Zero(t, skipped)
}

func TestIsWithinRoot(t *testing.T) {
	tests := []struct {
		path, root string
		want       bool
	}{
		{"/repo/a.go", "/repo", true},
		{"/repo", "/repo", true},
		{"/repo2/a.go", "/repo", false},
		{"/repo/../etc/passwd", "/repo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isWithinRoot(tt.path, tt.root), tt.path)
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755))
	nested := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, tmpDir, findGitRoot(nested))
}
