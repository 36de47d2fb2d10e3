package logging

import (
	"io"
	"time"
)

// NewWriterLogger creates a logger writing to w.
// The caller keeps ownership of w; Close does not close it.
func NewWriterLogger(w io.Writer, format Format, level Level) Logger {
	return &sinkLogger{sink: &sink{
		writer: w,
		format: format,
		level:  level,
		now:    time.Now,
	}}
}
