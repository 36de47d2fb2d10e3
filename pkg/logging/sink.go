package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// sink is the shared, mutex-guarded destination behind every logger
// derived with WithFields
type sink struct {
	mu     sync.Mutex
	writer io.Writer
	format Format
	level  Level
	now    func() time.Time

	// beforeWrite runs under mu ahead of each line; the file logger
	// uses it to rotate
	beforeWrite func()
	written     int64
	closer      io.Closer
}

// sinkLogger implements Logger on top of a shared sink
type sinkLogger struct {
	sink   *sink
	fields Fields
}

func (l *sinkLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

func (l *sinkLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

func (l *sinkLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

func (l *sinkLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WriteBlock holds the sink lock for the whole block
func (l *sinkLogger) WriteBlock(ctx context.Context, entries []Entry) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	for _, e := range entries {
		l.writeLocked(e.Level, e.Message, nil, e.Fields)
	}
}

// WithFields returns a logger with additional fields sharing the same sink
func (l *sinkLogger) WithFields(fields Fields) Logger {
	return &sinkLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close closes the underlying destination if it owns one
func (l *sinkLogger) Close() error {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if l.sink.closer != nil {
		err := l.sink.closer.Close()
		l.sink.closer = nil
		return err
	}
	return nil
}

func (l *sinkLogger) log(level Level, msg string, err error, fields Fields) {
	if level < l.sink.level {
		return
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.writeLocked(level, msg, err, fields)
}

func (l *sinkLogger) writeLocked(level Level, msg string, err error, fields Fields) {
	if level < l.sink.level {
		return
	}
	if l.sink.beforeWrite != nil {
		l.sink.beforeWrite()
	}

	all := mergeFields(l.fields, fields)

	var line []byte
	var fmtErr error
	if l.sink.format == FormatJSON {
		line, fmtErr = l.formatJSON(level, msg, err, all)
	} else {
		line = l.formatText(level, msg, err, all)
	}
	if fmtErr != nil {
		return
	}

	n, _ := l.sink.writer.Write(line)
	l.sink.written += int64(n)
}

// formatJSON formats a log entry as JSON
func (l *sinkLogger) formatJSON(level Level, msg string, err error, fields Fields) ([]byte, error) {
	entry := map[string]interface{}{
		"timestamp": l.sink.now().UTC().Format(time.RFC3339),
		"level":     levelString(level),
		"message":   msg,
	}

	if err != nil {
		entry["error"] = err.Error()
	}

	for k, v := range fields {
		entry[k] = v
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		return nil, jsonErr
	}

	return append(data, '\n'), nil
}

// formatText formats a log entry as plain text with fields in key order
func (l *sinkLogger) formatText(level Level, msg string, err error, fields Fields) []byte {
	timestamp := l.sink.now().UTC().Format("2006-01-02T15:04:05.000Z")

	line := fmt.Sprintf("%s [%s] %s", timestamp, levelString(level), msg)

	if err != nil {
		line += fmt.Sprintf(" error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		line += fmt.Sprintf(" %s=%v", k, fields[k])
	}

	return []byte(line + "\n")
}

func mergeFields(base, extra Fields) Fields {
	merged := make(Fields, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
