package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string

	// rename is os.Rename; tests swap it to force the copy fallback
	rename func(oldpath, newpath string) error
}

// NewLocal creates a new local filesystem backend rooted at an existing directory
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath, rename: os.Rename}, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.rootPath, path)
}

// List returns the direct entries of dir
func (l *Local) List(ctx context.Context, dir string) ([]FileInfo, error) {
	fullPath := l.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := e.Info()
		if err != nil {
			// entry vanished between ReadDir and Info
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}

		files = append(files, toFileInfo(filepath.Join(fullPath, e.Name()), info))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.resolve(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.resolve(path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fi := toFileInfo(fullPath, info)
	return &fi, nil
}

// Move renames src to dst. When the rename fails, for example across
// devices, the file is copied, verified by size and the source removed.
// If the source cannot be removed the copy is deleted again so the file
// is never left in two places.
func (l *Local) Move(ctx context.Context, src, dst string) error {
	srcPath, dstPath := l.resolve(src), l.resolve(dst)

	if exists, err := l.Exists(ctx, dstPath); err != nil {
		return err
	} else if exists {
		return fmt.Errorf("failed to move %s: %w", filepath.Base(srcPath), ErrExists)
	}

	if err := l.MkdirAll(ctx, filepath.Dir(dstPath)); err != nil {
		return err
	}

	renameErr := l.rename(srcPath, dstPath)
	if renameErr == nil {
		return nil
	}

	srcInfo, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to move: %w", renameErr)
	}

	if err := l.copyFile(srcPath, dstPath); err != nil {
		return fmt.Errorf("failed to move (rename: %v): %w", renameErr, err)
	}

	dstInfo, err := os.Stat(dstPath)
	if err != nil || dstInfo.Size() != srcInfo.Size() {
		os.Remove(dstPath)
		return fmt.Errorf("failed to move %s: copy verification failed", filepath.Base(srcPath))
	}

	if err := os.Remove(srcPath); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}

	return nil
}

// Copy duplicates src at dst, preserving permissions and timestamps
func (l *Local) Copy(ctx context.Context, src, dst string) error {
	srcPath, dstPath := l.resolve(src), l.resolve(dst)

	if err := l.MkdirAll(ctx, filepath.Dir(dstPath)); err != nil {
		return err
	}

	return l.copyFile(srcPath, dstPath)
}

func (l *Local) copyFile(srcPath, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("failed to create file: %w", ErrExists)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(out, in)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	if written != info.Size() {
		os.Remove(dstPath)
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", info.Size(), written)
	}

	if err := os.Chtimes(dstPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time: %w", err)
	}

	return nil
}

// Remove deletes a single file
func (l *Local) Remove(ctx context.Context, path string) error {
	if err := os.Remove(l.resolve(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// RemoveDirIfEmpty deletes dir when it has no entries.
// A missing directory is not an error.
func (l *Local) RemoveDirIfEmpty(ctx context.Context, dir string) (bool, error) {
	fullPath := l.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(entries) > 0 {
		return false, nil
	}

	if err := os.Remove(fullPath); err != nil {
		return false, fmt.Errorf("failed to remove directory: %w", err)
	}
	return true, nil
}

// SetTimes sets access and modification times
func (l *Local) SetTimes(ctx context.Context, path string, atime, mtime time.Time) error {
	if err := os.Chtimes(l.resolve(path), atime, mtime); err != nil {
		return fmt.Errorf("failed to set times: %w", err)
	}
	return nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.resolve(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func toFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:        path,
		Name:        info.Name(),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
		Regular:     info.Mode().IsRegular(),
		Permissions: uint32(info.Mode().Perm()),
	}
}
