package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalFetcher reads from a repository rooted at a local directory.
type LocalFetcher struct {
	root string
}

func NewLocal(root string) (*LocalFetcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving repository root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository root %s does not exist or is not a directory", abs)
	}
	return &LocalFetcher{root: abs}, nil
}

func (l *LocalFetcher) Fetch(_ context.Context, relPath string) ([]byte, error) {
	path := filepath.Join(l.root, filepath.FromSlash(relPath))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &TransportError{URI: path, Err: ErrNotFound}
	}
	if err != nil {
		return nil, &TransportError{URI: path, Err: err}
	}
	return data, nil
}

func (l *LocalFetcher) DisplayURI(relPath string) string {
	return filepath.Join(l.root, filepath.FromSlash(relPath))
}

func (l *LocalFetcher) Writable() bool { return true }

// Root returns the resolved repository root directory.
func (l *LocalFetcher) Root() string { return l.root }
