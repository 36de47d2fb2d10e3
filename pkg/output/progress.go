package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/sdejongh/mediacompact/pkg/models"
)

const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{etime . }} {{string . "file"}}`

// ProgressFormatter shows a single progress bar over all items
type ProgressFormatter struct {
	writer  io.Writer
	palette palette

	mu        sync.Mutex
	bar       *pb.ProgressBar
	completed int
}

// NewProgressFormatter creates a new progress bar formatter writing to w,
// or to stdout when w is nil
func NewProgressFormatter(w io.Writer) *ProgressFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &ProgressFormatter{writer: w, palette: newPalette(w)}
}

// Start creates and starts the bar
func (f *ProgressFormatter) Start(totalItems int, workers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bar = pb.New(totalItems)
	f.bar.SetWriter(f.writer)
	f.bar.SetTemplateString(progressTemplate)
	f.bar.Set("prefix", fmt.Sprintf("Compacting (%d workers) ", workers))
	if width := terminalWidth(f.writer); width > 0 {
		f.bar.SetWidth(width)
	}
	f.bar.Start()
	return nil
}

// Progress advances the bar by one per finished item
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil || update.Type != UpdateItemComplete || update.Outcome == nil {
		return nil
	}

	f.completed++
	f.bar.Set("file", filepath.Base(update.Outcome.File))
	f.bar.Increment()
	return nil
}

// Completed returns how many items the bar has counted
func (f *ProgressFormatter) Completed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Complete finishes the bar and displays the summary
func (f *ProgressFormatter) Complete(report *models.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	writeSummary(f.writer, f.palette, report)
	return nil
}

// Error finishes the bar and reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	fmt.Fprintf(f.writer, "\n%s %v\n", f.palette.fail.Sprint("Error:"), err)
	return nil
}

func (f *ProgressFormatter) finishBar() {
	if f.bar == nil {
		return
	}
	f.bar.Set("file", "")
	f.bar.Finish()
	f.bar = nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
