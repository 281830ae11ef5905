// Package vcs reads revisions and change sets from git repositories.
package vcs

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned when no git repository encloses a path.
var ErrNotRepository = errors.New("not a git repository")

// Tree reads file content at a fixed revision.
type Tree interface {
	File(path string) ([]byte, error)
}

// Repo is an opened git repository.
type Repo struct {
	repo *git.Repository
	root string
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &Repo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the absolute path of the working tree.
func (r *Repo) Root() string {
	return r.root
}

// CurrentRef returns the current branch name or commit SHA (for detached HEAD).
func (r *Repo) CurrentRef() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// Tree returns the file tree at ref, which may be a branch, tag or hash.
func (r *Repo) Tree(ref string) (Tree, error) {
	commit, err := r.commit(ref)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	return &gitTree{tree: tree}, nil
}

// ChangedFiles returns absolute paths of files added or modified between ref
// and the working tree, including staged and untracked files. Deleted files
// are left out.
func (r *Repo) ChangedFiles(ref string) ([]string, error) {
	base, err := r.commit(ref)
	if err != nil {
		return nil, err
	}
	head, err := r.commit("HEAD")
	if err != nil {
		return nil, err
	}

	baseTree, err := base.Tree()
	if err != nil {
		return nil, err
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(baseTree, headTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..HEAD: %w", ref, err)
	}

	set := make(map[string]bool)
	for _, ch := range changes {
		if ch.To.Name != "" {
			set[ch.To.Name] = true
		}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, err
	}
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}
	for path, s := range status {
		if s.Worktree == git.Deleted || s.Staging == git.Deleted {
			delete(set, path)
			continue
		}
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			set[path] = true
		}
	}

	files := make([]string, 0, len(set))
	for path := range set {
		files = append(files, filepath.Join(r.root, filepath.FromSlash(path)))
	}
	sort.Strings(files)
	return files, nil
}

func (r *Repo) commit(ref string) (*object.Commit, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", ref, err)
	}
	return r.repo.CommitObject(*hash)
}

type gitTree struct {
	tree *object.Tree
}

func (t *gitTree) File(path string) ([]byte, error) {
	f, err := t.tree.File(path)
	if err != nil {
		return nil, err
	}
	rd, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer rd.Close()
	return io.ReadAll(rd)
}
