package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

var ErrProjectNotFound = errors.New("project not found")

// FS is the sites root. Every subdirectory is one hosted project; there is
// no other metadata.
type FS struct {
	Root string

	locks *Locker
}

func New(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sites root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &FS{Root: abs, locks: NewLocker()}, nil
}

func (s *FS) ProjectDir(name string) string { return filepath.Join(s.Root, name) }

// Lock serializes work on one project name. The returned func releases it.
func (s *FS) Lock(name string) func() { return s.locks.Lock(name) }

// Reset removes any existing directory for name and recreates it empty.
// Uploads replace a project wholesale; nothing is merged.
func (s *FS) Reset(name string) (string, error) {
	dir := s.ProjectDir(name)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove project %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create project %s: %w", name, err)
	}
	return dir, nil
}

// Exists reports whether name is a hosted project.
func (s *FS) Exists(name string) bool {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return false
	}
	info, err := os.Stat(s.ProjectDir(name))
	return err == nil && info.IsDir()
}

// Open returns the directory of an existing project.
func (s *FS) Open(name string) (string, error) {
	if !s.Exists(name) {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return s.ProjectDir(name), nil
}

// List returns the names of all project directories, sorted.
func (s *FS) List() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if isDir(s.Root, e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// isDir follows symlinks, matching a stat of each entry.
func isDir(root string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(root, e.Name()))
	return err == nil && info.IsDir()
}
