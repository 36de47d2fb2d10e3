package compact

import (
	"context"
	"path/filepath"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// ImageProcessor re-encodes one image
type ImageProcessor struct {
	steps
	encoder  encoder.ImageEncoder
	metadata encoder.MetadataAdapter
}

// NewImageProcessor creates an image processor. metadata may be nil when
// metadata copy is disabled.
func NewImageProcessor(cfg *config.Config, backend storage.Backend, resolver *Resolver, enc encoder.ImageEncoder, metadata encoder.MetadataAdapter) *ImageProcessor {
	return &ImageProcessor{
		steps:    steps{cfg: cfg, backend: backend, resolver: resolver},
		encoder:  enc,
		metadata: metadata,
	}
}

// Process runs conflict check, encode, metadata copy, timestamps, size
// gate and backup, stopping at the first unrecoverable step
func (p *ImageProcessor) Process(ctx context.Context, item models.MediaItem) models.Outcome {
	b := models.NewOutcomeBuilder(item)

	unlock := p.resolver.Lock(item.Dir.Output, item.BaseName)
	defer unlock()

	ext := p.cfg.Image.OutputExt
	if !p.resolveConflicts(ctx, b, item, ext) || !p.prepareOutput(ctx, b, item) {
		return b.Build()
	}

	dst := filepath.Join(item.Dir.Output, item.BaseName+ext)
	if res := p.encoder.EncodeImage(ctx, item.SourcePath, dst, p.cfg.Image.Quality); !res.OK() {
		b.Errorf("Error converting image: %s: %v", item.SourcePath, res.Err)
		p.discardPartial(ctx, b, dst)
		return b.Build()
	}

	if exists, err := p.backend.Exists(ctx, dst); err != nil || !exists {
		b.Errorf("Failed to create compressed file for: %s", item.SourcePath)
		return b.Build()
	}
	b.Infof("Processed image: %s -> %s", item.SourcePath, dst)

	if p.metadata != nil && p.cfg.CarriesMetadata(item.Ext) {
		p.copyMetadata(ctx, b, item, dst)
	}

	p.finish(ctx, b, item, dst, "image")
	return b.Build()
}

// copyMetadata is best effort; failures only warn
func (p *ImageProcessor) copyMetadata(ctx context.Context, b *models.OutcomeBuilder, item models.MediaItem, dst string) {
	fields, err := p.metadata.ReadTextFields(ctx, item.SourcePath)
	if err != nil {
		b.Warnf("Error processing metadata for %s: %v", item.SourcePath, err)
		return
	}
	if len(fields) == 0 {
		b.Debugf("No text metadata in %s", item.SourcePath)
		return
	}

	if res := p.metadata.WriteTextFields(ctx, dst, encoder.EscapeFields(fields)); !res.OK() {
		b.Warnf("Error writing metadata for %s: %v", item.SourcePath, res.Err)
		return
	}
	b.Debugf("Copied %d metadata field(s) to %s", len(fields), dst)
}
