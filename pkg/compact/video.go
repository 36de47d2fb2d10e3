package compact

import (
	"context"
	"path/filepath"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// VideoProcessor re-encodes one video
type VideoProcessor struct {
	steps
	encoder encoder.VideoEncoder
}

// NewVideoProcessor creates a video processor
func NewVideoProcessor(cfg *config.Config, backend storage.Backend, resolver *Resolver, enc encoder.VideoEncoder) *VideoProcessor {
	return &VideoProcessor{
		steps:   steps{cfg: cfg, backend: backend, resolver: resolver},
		encoder: enc,
	}
}

// Process runs conflict check, probe, encode, timestamps, size gate and
// backup. No encode is attempted when the probe fails.
func (p *VideoProcessor) Process(ctx context.Context, item models.MediaItem) models.Outcome {
	b := models.NewOutcomeBuilder(item)

	unlock := p.resolver.Lock(item.Dir.Output, item.BaseName)
	defer unlock()

	ext := p.cfg.Video.OutputExt
	if !p.resolveConflicts(ctx, b, item, ext) {
		return b.Build()
	}

	dims, err := p.encoder.ProbeDimensions(ctx, item.SourcePath)
	if err != nil {
		b.Errorf("Error getting dimensions for video: %s: %v", item.SourcePath, err)
		return b.Build()
	}
	scale := encoder.ScaleFor(dims, p.cfg.Video.MaxDimension)
	b.Debugf("Video %s is %dx%d, scaling to %s", item.SourcePath, dims.Width, dims.Height, scale)

	if !p.prepareOutput(ctx, b, item) {
		return b.Build()
	}

	dst := filepath.Join(item.Dir.Output, item.BaseName+ext)
	params := encoder.VideoParams{
		Scale:      scale,
		VideoCodec: p.cfg.Video.VideoCodec,
		AudioCodec: p.cfg.Video.AudioCodec,
		CRF:        p.cfg.Video.CRF,
		Bitrate:    p.cfg.Video.Bitrate,
	}
	if res := p.encoder.EncodeVideo(ctx, item.SourcePath, dst, params); !res.OK() {
		b.Errorf("Error compressing video: %s: %v", item.SourcePath, res.Err)
		p.discardPartial(ctx, b, dst)
		return b.Build()
	}

	if exists, err := p.backend.Exists(ctx, dst); err != nil || !exists {
		b.Errorf("Failed to create compressed file for: %s", item.SourcePath)
		return b.Build()
	}
	b.Infof("Processed video: %s -> %s", item.SourcePath, dst)

	p.finish(ctx, b, item, dst, "video")
	return b.Build()
}
