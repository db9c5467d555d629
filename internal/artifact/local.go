package artifact

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/ricesearch/driftbench/internal/pkg/errors"
)

// LocalStore keeps blobs as files under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root. The directory is created on first write.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Put writes data to a temporary file and renames it into place.
func (s *LocalStore) Put(_ context.Context, name string, data []byte) error {
	target := s.path(name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperrors.IOError("creating "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apperrors.IOError("creating temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)
	if _, err := tmp.Write(data); err != nil {
		return apperrors.IOError("writing "+name, err)
	}
	if err := tmp.Sync(); err != nil {
		return apperrors.IOError("syncing "+name, err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.IOError("closing "+name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return apperrors.IOError("renaming "+name, err)
	}
	return nil
}

// Get reads name from disk.
func (s *LocalStore) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NotFoundError("artifact " + name)
	}
	if err != nil {
		return nil, apperrors.IOError("reading "+name, err)
	}
	return data, nil
}

// List walks the root and returns slash-separated names starting with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.IOError("listing "+s.root, err)
	}

	slices.Sort(names)
	return names, nil
}

// Delete removes name.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.IOError("deleting "+name, err)
	}
	return nil
}

// Location returns the file path of name.
func (s *LocalStore) Location(name string) string {
	return s.path(name)
}
