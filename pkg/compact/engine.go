package compact

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/logging"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/output"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// Adapters bundles the external collaborators of a run
type Adapters struct {
	Image    encoder.ImageEncoder
	Video    encoder.VideoEncoder
	Metadata encoder.MetadataAdapter
}

// DefaultAdapters selects adapters from the configuration
func DefaultAdapters(cfg *config.Config) Adapters {
	a := Adapters{Video: encoder.NewFFmpeg()}
	if cfg.Image.Encoder == "native" {
		a.Image = encoder.NewNative()
	} else {
		a.Image = encoder.NewCWebP()
	}
	if cfg.Image.CopyMetadata {
		a.Metadata = encoder.NewExifTool()
	}
	return a
}

// Requirements returns the external tools a configuration needs
func Requirements(cfg *config.Config) encoder.Requirements {
	return encoder.Requirements{
		CWebP:    cfg.Image.Encoder == "cwebp",
		FFmpeg:   true,
		ExifTool: cfg.Image.CopyMetadata,
	}
}

// Engine wires storage, resolver, processors, scheduler and reconciler
// for one run
type Engine struct {
	cfg       *config.Config
	adapters  Adapters
	formatter output.Formatter
	logger    logging.Logger
}

// NewEngine creates an engine. formatter and logger may be nil.
func NewEngine(cfg *config.Config, adapters Adapters, formatter output.Formatter, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Engine{cfg: cfg, adapters: adapters, formatter: formatter, logger: logger}
}

// Run compacts root. The error is non-nil only when the batch could not
// start; per-item failures are in the report.
func (e *Engine) Run(ctx context.Context, root, runID string) (*models.BatchReport, error) {
	backend, err := storage.NewLocal(root)
	if err != nil {
		return nil, fmt.Errorf("invalid directory %q: %w", root, err)
	}
	defer backend.Close()

	log := e.logger.WithFields(logging.Fields{"run_id": runID})
	log.Info(ctx, "--- Run started ---", logging.Fields{
		"root":      backend.Root(),
		"recursive": e.cfg.Processing.Recursive,
		"backup":    e.cfg.Processing.BackupOriginals,
		"workers":   e.cfg.Workers(),
	})

	resolver := NewResolver(backend, e.artifactExtensions())
	scheduler := NewScheduler(
		e.cfg,
		backend,
		NewImageProcessor(e.cfg, backend, resolver, e.adapters.Image, e.adapters.Metadata),
		NewVideoProcessor(e.cfg, backend, resolver, e.adapters.Video),
		NewReconciler(backend),
		e.formatter,
		log,
	)

	report, err := scheduler.Run(ctx, runID)
	if err != nil {
		log.Error(ctx, "--- Run failed ---", err, nil)
		return report, err
	}

	log.Info(ctx, "--- Run ended ---", logging.Fields{
		"status":        report.Status,
		"succeeded":     report.Stats.Succeeded,
		"errored":       report.Stats.Errored,
		"kept_original": report.Stats.KeptOriginal,
		"quarantined":   report.Stats.Quarantined,
		"duration":      report.Duration.String(),
	})
	return report, nil
}

func (e *Engine) artifactExtensions() []string {
	exts := []string{e.cfg.Image.OutputExt, e.cfg.Video.OutputExt}
	exts = append(exts, e.cfg.Image.Extensions...)
	return append(exts, e.cfg.Video.Extensions...)
}
