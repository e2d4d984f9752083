package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/ciforge/internal/errors"
)

// FSOptions configures FSStore
type FSOptions struct {
	// Root is the directory objects are written under
	Root string
}

// FSStore writes objects to a local directory tree, one file per key.
// It backs local runs and shared-volume CI setups.
type FSStore struct {
	root string
}

// NewFSStore creates an FSStore rooted at opts.Root
func NewFSStore(opts FSOptions) (*FSStore, error) {
	if opts.Root == "" {
		return nil, errors.New(errors.ErrCodePublishStoreConfig, "fs store root is not set").
			WithSuggestion("Set store.fs.root in the ciforge config")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePublishStoreConfig, "resolve fs store root", err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the absolute root directory
func (s *FSStore) Root() string {
	return s.root
}

// Path returns the file an object key maps to
func (s *FSStore) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(key, "/")))
	if clean == "." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", fmt.Errorf("key %q escapes the store root", key)
	}
	return filepath.Join(s.root, clean), nil
}

// Upload implements Uploader. The object is written to a temporary file and
// renamed so readers never observe a partial artifact.
func (s *FSStore) Upload(_ context.Context, key string, body []byte, _ string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}
