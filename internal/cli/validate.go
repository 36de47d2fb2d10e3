package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdejongh/mediacompact/internal/platform"
	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/logging"
	"github.com/sdejongh/mediacompact/pkg/output"
)

// resolveRoot returns the batch root from the arguments, prompting on
// in when none was given
func resolveRoot(args []string, in io.Reader, out io.Writer) (string, error) {
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		fmt.Fprint(out, "Enter the directory path: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read directory path: %w", err)
		}
		raw = line
	}

	path := platform.CleanInput(raw)
	if err := platform.ValidatePath(path); err != nil {
		return "", err
	}
	return validateRoot(path)
}

// validateRoot checks that path is an existing directory and makes it absolute
func validateRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("invalid directory: %s does not exist", abs)
	} else if err != nil {
		return "", fmt.Errorf("failed to access directory: %w", err)
	} else if !info.IsDir() {
		return "", fmt.Errorf("invalid directory: %s is not a directory", abs)
	}

	return abs, nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with the flags set on the
// command line
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("recursive") {
		cfg.Processing.Recursive = compactFlags.Recursive
	}
	if changed("no-backup") {
		cfg.Processing.BackupOriginals = !compactFlags.NoBackup
	}
	if changed("skip-checks") {
		cfg.Processing.SkipChecks = compactFlags.SkipChecks
	}

	if changed("workers") {
		cfg.Performance.MaxWorkers = compactFlags.Workers
	}
	if changed("image-quality") {
		cfg.Image.Quality = compactFlags.ImageQuality
	}
	if changed("image-encoder") {
		cfg.Image.Encoder = compactFlags.ImageEncoder
	}
	if changed("sequential-images") {
		cfg.Image.Parallel = !compactFlags.SequentialImages
	}
	if changed("crf") {
		cfg.Video.CRF = compactFlags.CRF
	}
	if changed("max-dimension") {
		cfg.Video.MaxDimension = compactFlags.MaxDimension
	}
	if changed("sequential-videos") {
		cfg.Video.Parallel = !compactFlags.SequentialVideos
	}

	// Exclude patterns
	if len(compactFlags.Exclude) > 0 {
		cfg.Exclude = compactFlags.Exclude
	}

	// Output format and report
	if changed("output") {
		cfg.Output.Format = compactFlags.Output
	}
	if changed("report") {
		cfg.Output.Report = compactFlags.Report
	}
	if changed("report-format") {
		cfg.Output.ReportFormat = compactFlags.ReportFormat
	}

	// Conversion log
	if changed("log-file") {
		cfg.Logging.File = compactFlags.LogFile
		cfg.Logging.Enabled = compactFlags.LogFile != ""
	}
	if changed("log-format") {
		cfg.Logging.Format = compactFlags.LogFormat
	}
	if changed("log-level") {
		cfg.Logging.Level = compactFlags.LogLevel
	}
	if compactFlags.NoLog {
		cfg.Logging.Enabled = false
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Per-item lines and debug messages in verbose mode
	if globalFlags.Verbose {
		cfg.Output.Progress = false
		cfg.Logging.Level = "debug"
	}
}

// newRunID returns the identifier carried by the report and every log line
func newRunID() string {
	return uuid.New().String()
}

// createFormatter picks the console formatter. The progress bar is only
// used on a terminal.
func createFormatter(cfg *config.Config) output.Formatter {
	switch {
	case cfg.Output.Format == "json":
		return output.NewJSONFormatter(os.Stdout)
	case cfg.Output.Progress && term.IsTerminal(int(os.Stdout.Fd())):
		return output.NewProgressFormatter(os.Stdout)
	default:
		return output.NewHumanFormatter(os.Stdout, cfg.Output.Quiet)
	}
}

// createLogger creates the conversion log
func createLogger(cfg *config.Config) (logging.Logger, error) {
	// If logging is off, return null logger
	if !cfg.Logging.Enabled || cfg.Logging.File == "" {
		return logging.NewNullLogger(), nil
	}

	// Parse log format
	var format logging.Format
	switch cfg.Logging.Format {
	case "json":
		format = logging.FormatJSON
	default:
		format = logging.FormatText
	}

	return logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      logging.ParseLevel(cfg.Logging.Level),
		MaxSize:    10 * 1024 * 1024, // 10 MB
		MaxBackups: 5,
	})
}
