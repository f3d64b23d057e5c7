package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/mitchellh/go-homedir"
)

// GitProvider reads files as they were at one revision of a repository, so
// fingerprints match the commit a build analysed rather than the worktree.
type GitProvider struct {
	mu       sync.Mutex
	tree     *object.Tree
	revision plumbing.Hash
	// root is the worktree directory for repositories opened from disk.
	root string
}

// OpenGitProvider opens the repository containing path and resolves revision
// (a branch, tag, hash or expression such as HEAD~1).
func OpenGitProvider(path, revision string) (*GitProvider, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand repository path %q: %w", path, err)
	}
	if expanded, err = filepath.Abs(expanded); err != nil {
		return nil, fmt.Errorf("failed to resolve repository path %q: %w", path, err)
	}
	repo, err := git.PlainOpenWithOptions(expanded, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %q: %w", expanded, err)
	}
	p, err := NewGitProvider(repo, revision)
	if err != nil {
		return nil, err
	}
	// Bare repositories have no worktree; their paths are always relative.
	if wt, err := repo.Worktree(); err == nil {
		p.root = filepath.ToSlash(wt.Filesystem.Root())
	}
	return p, nil
}

// NewGitProvider resolves revision in repo. An empty revision means HEAD.
func NewGitProvider(repo *git.Repository, revision string) (*GitProvider, error) {
	if revision == "" {
		revision = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %q: %w", revision, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", hash, err)
	}
	return &GitProvider{tree: tree, revision: *hash}, nil
}

// Revision returns the resolved commit hash.
func (p *GitProvider) Revision() string {
	return p.revision.String()
}

// ReadLines implements Provider.
func (p *GitProvider) ReadLines(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// object.Tree caches entries lazily and is not safe for concurrent use.
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.tree.File(relativePath(p.root, path))
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) || errors.Is(err, object.ErrDirectoryNotFound) || errors.Is(err, object.ErrEntryNotFound) {
			return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, path, p.revision.String()[:7])
		}
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, p.revision, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s at %s: %w", path, p.revision, err)
	}
	return SplitLines(contents), nil
}
