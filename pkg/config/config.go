package config

import (
	"runtime"
	"strings"

	"github.com/sdejongh/mediacompact/pkg/models"
)

// Config represents the application configuration.
// It is built once at startup and passed by pointer to every component;
// nothing mutates it after the run starts.
type Config struct {
	Image       ImageConfig       `yaml:"image"`
	Video       VideoConfig       `yaml:"video"`
	Processing  ProcessingConfig  `yaml:"processing"`
	Performance PerformanceConfig `yaml:"performance"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Exclude     []string          `yaml:"exclude"`
}

// ImageConfig holds image encoding settings
type ImageConfig struct {
	Encoder      string   `yaml:"encoder"` // "cwebp" or "native"
	Quality      int      `yaml:"quality"`
	OutputExt    string   `yaml:"output_ext"`
	Extensions   []string `yaml:"extensions"`
	CopyMetadata bool     `yaml:"copy_metadata"`
	// MetadataExtensions lists source formats that carry text metadata
	MetadataExtensions []string `yaml:"metadata_extensions"`
	Parallel           bool     `yaml:"parallel"`
}

// VideoConfig holds video encoding settings
type VideoConfig struct {
	VideoCodec   string   `yaml:"video_codec"`
	AudioCodec   string   `yaml:"audio_codec"`
	CRF          int      `yaml:"crf"`
	Bitrate      string   `yaml:"bitrate"`
	MaxDimension int      `yaml:"max_dimension"`
	OutputExt    string   `yaml:"output_ext"`
	Extensions   []string `yaml:"extensions"`
	Parallel     bool     `yaml:"parallel"`
}

// ProcessingConfig holds batch behaviour settings
type ProcessingConfig struct {
	BackupOriginals bool `yaml:"backup_originals"`
	Recursive       bool `yaml:"recursive"`
	SkipChecks      bool `yaml:"skip_checks"`
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers int `yaml:"max_workers"` // 0 = number of CPUs
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format       string `yaml:"format"`        // "human" or "json"
	Progress     bool   `yaml:"progress"`      // Show progress bar
	Quiet        bool   `yaml:"quiet"`         // Suppress non-error output
	Report       string `yaml:"report"`        // Optional report file
	ReportFormat string `yaml:"report_format"` // "human" or "json"
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Conversion log path
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Image: ImageConfig{
			Encoder:            "cwebp",
			Quality:            90,
			OutputExt:          ".webp",
			Extensions:         []string{".jpg", ".jpeg", ".png", ".webp"},
			CopyMetadata:       true,
			MetadataExtensions: []string{".png"},
			Parallel:           true,
		},
		Video: VideoConfig{
			VideoCodec:   "libvpx",
			AudioCodec:   "libvorbis",
			CRF:          47,
			Bitrate:      "1M",
			MaxDimension: 640,
			OutputExt:    ".webm",
			Extensions:   []string{".mp4", ".mov", ".avi", ".webm", ".m4v"},
			Parallel:     true,
		},
		Processing: ProcessingConfig{
			BackupOriginals: true,
			Recursive:       false,
		},
		Performance: PerformanceConfig{
			MaxWorkers: 0,
		},
		Output: OutputConfig{
			Format:       "human",
			Progress:     true,
			Quiet:        false,
			ReportFormat: "human",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "text",
			Level:   "info",
			File:    "conversion_log.txt",
		},
		Exclude: []string{
			"*.tmp",
			".git/",
		},
	}
}

// Workers returns the effective worker pool size
func (c *Config) Workers() int {
	if c.Performance.MaxWorkers > 0 {
		return c.Performance.MaxWorkers
	}
	return runtime.NumCPU()
}

// Classify maps a file extension onto a media kind
func (c *Config) Classify(ext string) models.MediaKind {
	ext = strings.ToLower(ext)
	if containsExt(c.Image.Extensions, ext) {
		return models.KindImage
	}
	if containsExt(c.Video.Extensions, ext) {
		return models.KindVideo
	}
	return models.KindUnrecognized
}

// CarriesMetadata reports whether a source of this extension has text
// metadata worth copying to the encoded image
func (c *Config) CarriesMetadata(ext string) bool {
	return c.Image.CopyMetadata && containsExt(c.Image.MetadataExtensions, strings.ToLower(ext))
}

func containsExt(list []string, ext string) bool {
	for _, e := range list {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validEncoders := map[string]bool{"cwebp": true, "native": true}
	if !validEncoders[c.Image.Encoder] {
		return &models.ValidationError{
			Field:   "image.encoder",
			Message: "must be 'cwebp' or 'native'",
		}
	}

	if c.Image.Quality < 0 || c.Image.Quality > 100 {
		return &models.ValidationError{
			Field:   "image.quality",
			Message: "must be between 0 and 100",
		}
	}

	if !strings.HasPrefix(c.Image.OutputExt, ".") {
		return &models.ValidationError{
			Field:   "image.output_ext",
			Message: "must start with '.'",
		}
	}

	if !strings.HasPrefix(c.Video.OutputExt, ".") {
		return &models.ValidationError{
			Field:   "video.output_ext",
			Message: "must start with '.'",
		}
	}

	if c.Video.CRF < 0 || c.Video.CRF > 63 {
		return &models.ValidationError{
			Field:   "video.crf",
			Message: "must be between 0 and 63",
		}
	}

	if c.Video.MaxDimension < 2 || c.Video.MaxDimension%2 != 0 {
		return &models.ValidationError{
			Field:   "video.max_dimension",
			Message: "must be an even number of at least 2",
		}
	}

	if c.Video.VideoCodec == "" || c.Video.AudioCodec == "" {
		return &models.ValidationError{
			Field:   "video.codecs",
			Message: "video_codec and audio_codec are required",
		}
	}

	for _, ext := range c.Image.Extensions {
		if containsExt(c.Video.Extensions, strings.ToLower(ext)) {
			return &models.ValidationError{
				Field:   "extensions",
				Message: "extension " + ext + " is listed for both images and videos",
			}
		}
	}

	if c.Performance.MaxWorkers < 0 {
		return &models.ValidationError{
			Field:   "performance.max_workers",
			Message: "must be 0 (auto) or positive",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	if !validFormats[c.Output.ReportFormat] {
		return &models.ValidationError{
			Field:   "output.report_format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
