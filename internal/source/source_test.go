package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\nb\n", []string{"a", "", "b"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SplitLines(tc.input))
		})
	}
}

func TestFSProvider(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "src/main.go", []byte("package main\n\nfunc main() {}\n"), 0o644))
	p := NewFSProvider(fs)
	ctx := context.Background()

	t.Run("reads lines", func(t *testing.T) {
		lines, err := p.ReadLines(ctx, "./src/main.go")
		require.NoError(t, err)
		assert.Equal(t, []string{"package main", "", "func main() {}"}, lines)
	})

	t.Run("backslash paths", func(t *testing.T) {
		lines, err := p.ReadLines(ctx, `src\main.go`)
		require.NoError(t, err)
		assert.Len(t, lines, 3)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.ReadLines(ctx, "src/missing.go")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.ReadLines(cctx, "src/main.go")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewDirProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pkg", "a.txt"), []byte("one\ntwo\n"), 0o644))

	p, err := NewDirProvider(dir)
	require.NoError(t, err)

	lines, err := p.ReadLines(context.Background(), "pkg/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)

	_, err = p.ReadLines(context.Background(), "../outside.txt")
	assert.ErrorIs(t, err, ErrNotFound, "paths may not escape the root")

	abs := filepath.ToSlash(filepath.Join(dir, "pkg", "a.txt"))
	lines, err = p.ReadLines(context.Background(), abs)
	require.NoError(t, err, "absolute paths below the root are resolved against it")
	assert.Equal(t, []string{"one", "two"}, lines)

	_, err = NewDirProvider(filepath.Join(dir, "pkg", "a.txt"))
	assert.Error(t, err, "root must be a directory")

	_, err = NewDirProvider(filepath.Join(dir, "nope"))
	assert.Error(t, err)
}

// -- Git provider --

func commitFile(t *testing.T, repo *git.Repository, fs billy.Filesystem, name, content string) plumbing.Hash {
	t.Helper()
	f, err := fs.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func TestGitProvider(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	first := commitFile(t, repo, fs, "lib/calc.go", "package lib\n\nvar x = 1\n")
	commitFile(t, repo, fs, "lib/calc.go", "package lib\n\n// shifted\nvar x = 1\n")

	ctx := context.Background()

	t.Run("reads the requested revision", func(t *testing.T) {
		p, err := NewGitProvider(repo, first.String())
		require.NoError(t, err)
		assert.Equal(t, first.String(), p.Revision())

		lines, err := p.ReadLines(ctx, "lib/calc.go")
		require.NoError(t, err)
		assert.Equal(t, []string{"package lib", "", "var x = 1"}, lines)
	})

	t.Run("defaults to HEAD", func(t *testing.T) {
		p, err := NewGitProvider(repo, "")
		require.NoError(t, err)
		lines, err := p.ReadLines(ctx, "./lib/calc.go")
		require.NoError(t, err)
		assert.Len(t, lines, 4)
	})

	t.Run("missing file", func(t *testing.T) {
		p, err := NewGitProvider(repo, "HEAD")
		require.NoError(t, err)
		_, err = p.ReadLines(ctx, "lib/other.go")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown revision", func(t *testing.T) {
		_, err := NewGitProvider(repo, "does-not-exist")
		assert.Error(t, err)
	})
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		root, path, want string
	}{
		{"", "src/A.java", "src/A.java"},
		{"", "./src/A.java", "src/A.java"},
		{"", "/src/A.java", "src/A.java"},
		{"/work/app", "/work/app/src/A.java", "src/A.java"},
		{"/work/app/", "/work/app/src/A.java", "src/A.java"},
		{"/work/app", "/work/application/A.java", "work/application/A.java"},
		{"C:/work/app", `C:\work\app\src\A.java`, "src/A.java"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, relativePath(tt.root, tt.path), "%s in %s", tt.path, tt.root)
	}
}

func TestOpenGitProvider_AbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, wt.Filesystem.MkdirAll("src", 0o755))
	commitFile(t, repo, wt.Filesystem, "src/App.java", "class App {\n}\n")

	p, err := OpenGitProvider(filepath.Join(dir, "src"), "HEAD")
	require.NoError(t, err)

	ctx := context.Background()
	lines, err := p.ReadLines(ctx, filepath.ToSlash(filepath.Join(dir, "src", "App.java")))
	require.NoError(t, err)
	assert.Equal(t, []string{"class App {", "}"}, lines)

	lines, err = p.ReadLines(ctx, "src/App.java")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}
