package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sdejongh/mediacompact/pkg/compact"
	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/output"
)

// CompactFlags holds compact command flags
type CompactFlags struct {
	Recursive        bool
	NoBackup         bool
	Workers          int
	ImageQuality     int
	CRF              int
	MaxDimension     int
	ImageEncoder     string
	SequentialImages bool
	SequentialVideos bool
	Exclude          []string
	Output           string
	Report           string
	ReportFormat     string
	SkipChecks       bool
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
	NoLog     bool
}

var compactFlags CompactFlags

// NewCompactCommand creates the compact command
func NewCompactCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact [DIR]",
		Short: "Re-encode the media of a folder and keep the smaller files",
		Long: `Re-encode every image to WebP and every video to WebM, keep whichever
of original and encoded file is smaller in DIR_compressed, and move the
originals to DIR_originals_backup. Files from earlier runs that would be
overwritten are moved to a <name>_conflict folder, and files left without
a partner are moved to DIR_unpaired.

When DIR is omitted it is read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompact,
	}

	cmd.Flags().BoolVarP(&compactFlags.Recursive, "recursive", "r", false, "also process subdirectories")
	cmd.Flags().BoolVar(&compactFlags.NoBackup, "no-backup", false, "leave originals in place instead of moving them to the backup folder")
	cmd.Flags().IntVarP(&compactFlags.Workers, "workers", "w", 0, "number of parallel workers (default: number of CPUs)")
	cmd.Flags().IntVar(&compactFlags.ImageQuality, "image-quality", 90, "WebP quality, 0-100")
	cmd.Flags().IntVar(&compactFlags.CRF, "crf", 47, "VP8 constant rate factor, 0-63")
	cmd.Flags().IntVar(&compactFlags.MaxDimension, "max-dimension", 640, "longest side of encoded videos, in pixels")
	cmd.Flags().StringVar(&compactFlags.ImageEncoder, "image-encoder", "cwebp", "image encoder: cwebp, native")
	cmd.Flags().BoolVar(&compactFlags.SequentialImages, "sequential-images", false, "encode images one at a time")
	cmd.Flags().BoolVar(&compactFlags.SequentialVideos, "sequential-videos", false, "encode videos one at a time")
	cmd.Flags().StringSliceVar(&compactFlags.Exclude, "exclude", []string{}, "glob patterns to exclude")
	cmd.Flags().StringVarP(&compactFlags.Output, "output", "o", "human", "output format: human, json")
	cmd.Flags().StringVar(&compactFlags.Report, "report", "", "write the batch report to file")
	cmd.Flags().StringVar(&compactFlags.ReportFormat, "report-format", "human", "report format: human, json")
	cmd.Flags().BoolVar(&compactFlags.SkipChecks, "skip-checks", false, "do not check for external tools before starting")

	// Logging flags
	cmd.Flags().StringVar(&compactFlags.LogFile, "log-file", "conversion_log.txt", "conversion log path")
	cmd.Flags().StringVar(&compactFlags.LogFormat, "log-format", "text", "log format: text, json")
	cmd.Flags().StringVar(&compactFlags.LogLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&compactFlags.NoLog, "no-log", false, "do not write the conversion log")

	return cmd
}

func runCompact(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyFlagsToConfig(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	root, err := resolveRoot(args, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	if !cfg.Processing.SkipChecks {
		if err := encoder.CheckDependencies(compact.Requirements(cfg)); err != nil {
			printMissingTools(os.Stderr, err)
			return err
		}
	}

	formatter := createFormatter(cfg)

	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	engine := compact.NewEngine(cfg, compact.DefaultAdapters(cfg), formatter, logger)

	report, err := engine.Run(ctx, root, newRunID())
	if err != nil {
		if cfg.Output.Format == "json" {
			formatter.Error(err)
		}
		if errors.Is(err, context.Canceled) {
			logger.Close()
			os.Exit(models.StatusCancelled.ExitCode())
		}
		return fmt.Errorf("compaction failed: %w", err)
	}

	if cfg.Output.Report != "" {
		if err := output.WriteReport(report, cfg.Output.Report, cfg.Output.ReportFormat); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	// Exit with appropriate code
	if code := report.Status.ExitCode(); code != 0 {
		logger.Close()
		os.Exit(code)
	}
	return nil
}
