package compact

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Reconciler restores pairing between a directory's output and backup
// folders by quarantining base names present in only one of them
type Reconciler struct {
	backend storage.Backend
}

// NewReconciler creates a reconciler
func NewReconciler(backend storage.Backend) *Reconciler {
	return &Reconciler{backend: backend}
}

// Reconcile moves every unpaired file of triple into its quarantine
// folder. Per-file failures are recorded and the pass continues; the
// returned error is reserved for folders that cannot be listed.
func (r *Reconciler) Reconcile(ctx context.Context, triple models.DirectoryTriple) (models.ReconcileResult, error) {
	result := models.ReconcileResult{Dir: triple}

	outputs, err := r.filesByBase(ctx, triple.Output)
	if err != nil {
		return result, err
	}
	backups, err := r.filesByBase(ctx, triple.Backup)
	if err != nil {
		return result, err
	}

	names := make([]string, 0, len(outputs)+len(backups))
	for base := range outputs {
		names = append(names, base)
	}
	for base := range backups {
		if _, ok := outputs[base]; !ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)

	for _, base := range names {
		out, inOut := outputs[base]
		back, inBack := backups[base]
		switch {
		case inOut && inBack:
			result.Paired++
		case inOut:
			r.quarantine(ctx, triple, out, &result)
		default:
			r.quarantine(ctx, triple, back, &result)
		}
	}

	return result, nil
}

func (r *Reconciler) quarantine(ctx context.Context, triple models.DirectoryTriple, files []storage.FileInfo, result *models.ReconcileResult) {
	for _, f := range files {
		if err := r.backend.MkdirAll(ctx, triple.Quarantine); err != nil {
			result.Failures = append(result.Failures, models.RelocationFailure{Path: f.Path, Error: err.Error()})
			continue
		}
		dst, err := storage.UniquePath(ctx, r.backend, filepath.Join(triple.Quarantine, f.Name))
		if err != nil {
			result.Failures = append(result.Failures, models.RelocationFailure{Path: f.Path, Error: err.Error()})
			continue
		}
		if err := r.backend.Move(ctx, f.Path, dst); err != nil {
			result.Failures = append(result.Failures, models.RelocationFailure{Path: f.Path, Error: err.Error()})
			continue
		}
		result.Moved = append(result.Moved, models.RelocatedFile{From: f.Path, To: dst})
	}
}

// filesByBase groups the regular files of dir by base name. A missing
// folder is empty.
func (r *Reconciler) filesByBase(ctx context.Context, dir string) (map[string][]storage.FileInfo, error) {
	groups := make(map[string][]storage.FileInfo)

	exists, err := r.backend.Exists(ctx, dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return groups, nil
	}

	entries, err := r.backend.List(ctx, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return groups, nil
		}
		return nil, err
	}

	for _, e := range entries {
		if !e.Regular {
			continue
		}
		base := models.BaseName(e.Name)
		groups[base] = append(groups[base], e)
	}
	return groups, nil
}
