package compact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Resolver quarantines artifacts left by earlier runs, or by a sibling
// with the same base name, before an item writes into the output and
// backup folders. It never deletes and never overwrites.
type Resolver struct {
	backend storage.Backend
	locks   *keyedMutex

	// extensions are the artifact extensions checked for each base name
	extensions []string
}

// NewResolver creates a resolver. extensions lists every extension an
// artifact with a given base name may carry: all recognized source
// extensions plus the encoded output extensions.
func NewResolver(backend storage.Backend, extensions []string) *Resolver {
	seen := make(map[string]bool)
	var exts []string
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !seen[e] {
			seen[e] = true
			exts = append(exts, e)
		}
	}
	return &Resolver{backend: backend, locks: newKeyedMutex(), extensions: exts}
}

// Lock serializes all work on one base name within one output folder.
// Item processors hold it from conflict resolution through backup.
func (r *Resolver) Lock(outputFolder, baseName string) func() {
	return r.locks.Lock(filepath.Clean(outputFolder) + "\x00" + baseName)
}

// Resolve moves any existing artifact for sourcePath's base name out of
// outputFolder and backupFolder into outputFolder/<base>_conflict. The
// caller must hold Lock for the same name. A second call finds nothing.
func (r *Resolver) Resolve(ctx context.Context, sourcePath, outputFolder, backupFolder, outputExt string) (models.ConflictResult, error) {
	base := models.BaseName(sourcePath)
	name := filepath.Base(sourcePath)
	folder := models.ConflictFolder(outputFolder, base)
	result := models.ConflictResult{BaseName: base}

	for _, candidate := range r.candidates(base, name, outputFolder, backupFolder, outputExt) {
		exists, err := r.backend.Exists(ctx, candidate)
		if err != nil {
			return result, err
		}
		if !exists {
			continue
		}
		info, err := r.backend.Stat(ctx, candidate)
		if err != nil {
			return result, err
		}
		if info.IsDir {
			continue
		}

		if err := r.backend.MkdirAll(ctx, folder); err != nil {
			return result, err
		}
		dst, err := storage.UniquePath(ctx, r.backend, filepath.Join(folder, filepath.Base(candidate)))
		if err != nil {
			return result, err
		}
		if err := r.backend.Move(ctx, candidate, dst); err != nil {
			return result, fmt.Errorf("quarantine %s: %w", candidate, err)
		}
		result.Moved = append(result.Moved, dst)
	}

	if result.Detected() {
		result.Folder = folder
		return result, nil
	}

	if _, err := r.backend.RemoveDirIfEmpty(ctx, folder); err != nil {
		return result, err
	}
	return result, nil
}

// candidates lists, without duplicates, every path that would collide
// with the item: <base><outputExt> and <base><ext> for each known extension
// in the output folder, and the exact source filename plus <base><ext> in
// the backup folder
func (r *Resolver) candidates(base, name, outputFolder, backupFolder, outputExt string) []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	add(filepath.Join(outputFolder, base+outputExt))
	for _, ext := range r.extensions {
		add(filepath.Join(outputFolder, base+ext))
	}

	add(filepath.Join(backupFolder, name))
	for _, ext := range r.extensions {
		add(filepath.Join(backupFolder, base+ext))
	}
	return paths
}
