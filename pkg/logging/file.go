package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// fileTarget owns the open log file and rotates it
type fileTarget struct {
	config FileLoggerConfig
	file   *os.File
	sink   *sink
}

// NewFileLogger creates a logger appending to config.Path.
// The conversion log survives across runs, so the file is never truncated.
func NewFileLogger(config FileLoggerConfig) (Logger, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	t := &fileTarget{config: config, file: file}
	t.sink = &sink{
		writer:  file,
		format:  config.Format,
		level:   config.Level,
		now:     time.Now,
		written: info.Size(),
		closer:  file,
	}
	t.sink.beforeWrite = t.maybeRotate

	return &sinkLogger{sink: t.sink}, nil
}

// maybeRotate runs with the sink lock held
func (t *fileTarget) maybeRotate() {
	if t.config.MaxSize <= 0 || t.sink.written < t.config.MaxSize || t.file == nil {
		return
	}

	t.file.Close()

	for i := t.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", t.config.Path, i)
		newPath := fmt.Sprintf("%s.%d", t.config.Path, i+1)
		os.Rename(oldPath, newPath)
	}

	os.Rename(t.config.Path, t.config.Path+".1")

	if t.config.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", t.config.Path, t.config.MaxBackups+1))
	}

	file, err := os.OpenFile(t.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// keep writing nowhere rather than to a closed descriptor
		t.file = nil
		t.sink.writer = discard{}
		t.sink.closer = nil
		return
	}

	t.file = file
	t.sink.writer = file
	t.sink.closer = file
	t.sink.written = 0
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
