package compact

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Processor runs the full per-item state machine and always returns an
// outcome; failures are recorded in it, never returned
type Processor interface {
	Process(ctx context.Context, item models.MediaItem) models.Outcome
}

// steps holds what image and video processing share
type steps struct {
	cfg      *config.Config
	backend  storage.Backend
	resolver *Resolver
}

// resolveConflicts runs the resolver and reports whether processing may go on
func (s *steps) resolveConflicts(ctx context.Context, b *models.OutcomeBuilder, item models.MediaItem, outputExt string) bool {
	res, err := s.resolver.Resolve(ctx, item.SourcePath, item.Dir.Output, item.Dir.Backup, outputExt)
	if err != nil {
		b.Errorf("Error resolving conflicts for %s: %v", item.SourcePath, err)
		return false
	}
	if res.Detected() {
		b.SetConflictFolder(res.Folder)
		b.Warnf("Conflicting files moved to: %s", res.Folder)
	}
	return true
}

// prepareOutput makes sure the output folder exists
func (s *steps) prepareOutput(ctx context.Context, b *models.OutcomeBuilder, item models.MediaItem) bool {
	if err := s.backend.MkdirAll(ctx, item.Dir.Output); err != nil {
		b.Errorf("Error creating output folder %s: %v", item.Dir.Output, err)
		return false
	}
	return true
}

// discardPartial removes whatever a failed encoder left at dst
func (s *steps) discardPartial(ctx context.Context, b *models.OutcomeBuilder, dst string) {
	exists, err := s.backend.Exists(ctx, dst)
	if err != nil || !exists {
		return
	}
	if err := s.backend.Remove(ctx, dst); err != nil {
		b.Warnf("Could not remove partial output %s: %v", dst, err)
		return
	}
	b.Debugf("Removed partial output %s", dst)
}

// preserveTimes copies the source mtime onto path, as both atime and mtime
func (s *steps) preserveTimes(ctx context.Context, b *models.OutcomeBuilder, path string, mtime time.Time) {
	if err := s.backend.SetTimes(ctx, path, mtime, mtime); err != nil {
		b.Warnf("Could not preserve timestamps on %s: %v", path, err)
	}
}

// finish applies timestamp preservation, the size gate and backup
// relocation to an encoded artifact. When the gate keeps the original, the
// copy takes the encoded artifact's name.
func (s *steps) finish(ctx context.Context, b *models.OutcomeBuilder, item models.MediaItem, encoded, label string) {
	srcInfo, err := s.backend.Stat(ctx, item.SourcePath)
	if err != nil {
		b.Errorf("Error reading original %s: %v", item.SourcePath, err)
		return
	}
	b.SetOriginalSize(srcInfo.Size)

	s.preserveTimes(ctx, b, encoded, srcInfo.ModTime)

	encInfo, err := s.backend.Stat(ctx, encoded)
	if err != nil {
		b.Errorf("Failed to create compressed file for: %s", item.SourcePath)
		return
	}

	if encInfo.Size >= srcInfo.Size {
		if err := s.backend.Remove(ctx, encoded); err != nil {
			b.Errorf("Error discarding larger compressed %s %s: %v", label, encoded, err)
			return
		}
		if err := s.backend.Copy(ctx, item.SourcePath, encoded); err != nil {
			b.Errorf("Error copying original %s to output: %v", item.SourcePath, err)
			return
		}
		s.preserveTimes(ctx, b, encoded, srcInfo.ModTime)
		b.SetFinalSize(srcInfo.Size, true)
		b.Infof("Compressed %s larger than original, kept original: %s", label, item.SourcePath)
	} else {
		b.SetFinalSize(encInfo.Size, false)
		b.Infof("Compressed %s is smaller, kept compressed: %s", label, item.SourcePath)
	}

	if !s.cfg.Processing.BackupOriginals {
		b.Debugf("Backup disabled, original left in place: %s", item.SourcePath)
		return
	}

	backup := filepath.Join(item.Dir.Backup, item.FileName())
	if err := s.backend.Move(ctx, item.SourcePath, backup); err != nil {
		b.Errorf("Error moving original %s to backup: %s: %v", label, item.SourcePath, err)
		return
	}
	b.SetBackedUp()
	b.Infof("Moved original %s to backup: %s", label, item.SourcePath)
}
