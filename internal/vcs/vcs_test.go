package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func TestOpen_NotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestTreeAndChangedFiles(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.py", "x = 1\n")
	commitFile(t, repo, dir, "b.py", "y = 2\n")

	r, err := Open(dir)
	require.NoError(t, err)

	tree, err := r.Tree("HEAD~1")
	require.NoError(t, err)
	content, err := tree.File("a.py")
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(content))
	_, err = tree.File("b.py")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.py"), []byte("z = 3\n"), 0o644))

	changed, err := r.ChangedFiles("HEAD~1")
	require.NoError(t, err)

	var names []string
	for _, f := range changed {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{"b.py", "c.py"}, names)
}

func TestCurrentRef(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, repo, dir, "a.py", "x = 1\n")

	r, err := Open(dir)
	require.NoError(t, err)
	ref, err := r.CurrentRef()
	require.NoError(t, err)
	assert.Equal(t, "master", ref)
}
