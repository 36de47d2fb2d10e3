package compact

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Inventory is the result of enumerating a batch root
type Inventory struct {
	// Dirs holds the triple of every directory that contributed items,
	// in walk order
	Dirs []models.DirectoryTriple

	// Items holds recognized media files sorted by path
	Items []models.MediaItem
}

// Count returns the number of items per kind
func (inv *Inventory) Count(kind models.MediaKind) int {
	n := 0
	for _, it := range inv.Items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Discover enumerates the backend root. Derived folders of each directory
// are never entered; <base>_conflict folders only exist inside them. Unrecognized files are
// dropped silently.
func Discover(ctx context.Context, backend storage.Backend, cfg *config.Config) (*Inventory, error) {
	inv := &Inventory{}
	if err := discoverDir(ctx, backend, cfg, backend.Root(), inv); err != nil {
		return nil, err
	}
	sort.Slice(inv.Items, func(i, j int) bool {
		return inv.Items[i].SourcePath < inv.Items[j].SourcePath
	})
	return inv, nil
}

func discoverDir(ctx context.Context, backend storage.Backend, cfg *config.Config, dir string, inv *Inventory) error {
	entries, err := backend.List(ctx, dir)
	if err != nil {
		return err
	}

	triple := models.NewDirectoryTriple(dir)
	var subdirs []string
	found := false

	for _, e := range entries {
		rel := relativeTo(backend.Root(), e.Path)

		if e.IsDir {
			if triple.IsDerived(e.Path) {
				continue
			}
			if cfg.Processing.Recursive && !excluded(rel, cfg.Exclude) {
				subdirs = append(subdirs, e.Path)
			}
			continue
		}

		if !e.Regular || excluded(rel, cfg.Exclude) {
			continue
		}

		kind := cfg.Classify(filepath.Ext(e.Name))
		if kind == models.KindUnrecognized {
			continue
		}

		inv.Items = append(inv.Items, models.NewMediaItem(e.Path, e.Size, kind, triple))
		found = true
	}

	if found {
		inv.Dirs = append(inv.Dirs, triple)
	}

	for _, sub := range subdirs {
		if err := discoverDir(ctx, backend, cfg, sub, inv); err != nil {
			return err
		}
	}
	return nil
}

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
