package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ErrExists is returned when a move or copy would replace an existing file
var ErrExists = errors.New("destination already exists")

// FileInfo represents metadata about a file
type FileInfo struct {
	Path        string
	Name        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	Regular     bool
	Permissions uint32
}

// Backend defines the filesystem operations the compactor relies on.
// Relative paths are resolved against the backend root. No operation
// ever replaces an existing file.
type Backend interface {
	// Root returns the absolute root path
	Root() string

	// List returns the direct entries of a directory, sorted by name
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Move relocates a file, falling back to copy and delete when a
	// plain rename is not possible. Exactly one copy remains on success.
	Move(ctx context.Context, src, dst string) error

	// Copy duplicates a file, preserving permissions and timestamps
	Copy(ctx context.Context, src, dst string) error

	// Remove deletes a single file
	Remove(ctx context.Context, path string) error

	// RemoveDirIfEmpty deletes dir only if it has no entries
	RemoveDirIfEmpty(ctx context.Context, dir string) (bool, error)

	// SetTimes sets access and modification times
	SetTimes(ctx context.Context, path string, atime, mtime time.Time) error

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}

// UniquePath returns path if nothing exists there, otherwise the first
// free "name (n).ext" sibling
func UniquePath(ctx context.Context, b Backend, path string) (string, error) {
	exists, err := b.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !exists {
		return path, nil
	}

	dir := filepath.Dir(path)
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i < 10000; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		exists, err := b.Exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s", path)
}
