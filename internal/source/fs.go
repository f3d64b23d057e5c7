package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// FSProvider reads files from a directory tree.
type FSProvider struct {
	fs afero.Fs
	// root is the absolute directory fs is based on, if any.
	root string
}

// NewFSProvider serves files from fs. The fs is wrapped read-only.
func NewFSProvider(fs afero.Fs) *FSProvider {
	return &FSProvider{fs: afero.NewReadOnlyFs(fs)}
}

// NewDirProvider serves files below root on the local disk. A leading ~ is
// expanded to the user's home directory.
func NewDirProvider(root string) (*FSProvider, error) {
	expanded, err := homedir.Expand(root)
	if err != nil {
		return nil, fmt.Errorf("failed to expand source root %q: %w", root, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, fmt.Errorf("source root %q: %w", expanded, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %q is not a directory", expanded)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source root %q: %w", expanded, err)
	}
	p := NewFSProvider(afero.NewBasePathFs(afero.NewOsFs(), abs))
	p.root = filepath.ToSlash(abs)
	return p, nil
}

// ReadLines implements Provider.
func (p *FSProvider) ReadLines(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(p.fs, relativePath(p.root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return SplitLines(string(data)), nil
}
