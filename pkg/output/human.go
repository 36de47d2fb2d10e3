package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/mediacompact/pkg/models"
)

// HumanFormatter prints one line per finished item
type HumanFormatter struct {
	writer  io.Writer
	palette palette

	// quiet prints failures only
	quiet bool

	mu         sync.Mutex
	totalItems int
	startTime  time.Time
}

// NewHumanFormatter creates a new human-readable formatter writing to w,
// or to stdout when w is nil
func NewHumanFormatter(w io.Writer, quiet bool) *HumanFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &HumanFormatter{writer: w, palette: newPalette(w), quiet: quiet}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(totalItems int, workers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.totalItems = totalItems
	f.startTime = time.Now()

	if !f.quiet {
		fmt.Fprintf(f.writer, "Compacting %d items with %d workers\n", totalItems, workers)
	}
	return nil
}

// Progress reports one finished item or reconciled directory
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdateItemComplete:
		if update.Outcome != nil {
			f.item(update.Current, update.Outcome)
		}
	case UpdateReconciled:
		if update.Reconcile != nil {
			f.reconciled(update.Reconcile)
		}
	}
	return nil
}

func (f *HumanFormatter) item(n int, o *models.Outcome) {
	prefix := fmt.Sprintf("[%d/%d]", n, f.totalItems)
	switch {
	case o.Failed():
		fmt.Fprintf(f.writer, "%s %s %s: %s\n", prefix, f.palette.fail.Sprint("✗"), o.File, lastError(*o))
		return
	case f.quiet:
		return
	case o.KeptOriginal:
		fmt.Fprintf(f.writer, "%s %s %s kept original (%s)\n",
			prefix, f.palette.dim.Sprint("="), o.File, formatBytes(o.OriginalSize))
	default:
		fmt.Fprintf(f.writer, "%s %s %s %s -> %s\n",
			prefix, f.palette.ok.Sprint("✓"), o.File, formatBytes(o.OriginalSize), formatBytes(o.FinalSize))
	}

	if o.ConflictFolder != "" {
		fmt.Fprintf(f.writer, "      %s\n", f.palette.warn.Sprintf("conflicting files moved to %s", o.ConflictFolder))
	}
}

func (f *HumanFormatter) reconciled(r *models.ReconcileResult) {
	for _, fail := range r.Failures {
		fmt.Fprintf(f.writer, "%s could not move unpaired %s: %s\n", f.palette.fail.Sprint("✗"), fail.Path, fail.Error)
	}
	if len(r.Moved) > 0 && !f.quiet {
		fmt.Fprintf(f.writer, "%s moved %d unpaired file(s) to %s\n",
			f.palette.warn.Sprint("!"), len(r.Moved), r.Dir.Quarantine)
	}
}

// Complete displays the summary
func (f *HumanFormatter) Complete(report *models.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	writeSummary(f.writer, f.palette, report)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(f.writer, "%s %v\n", f.palette.fail.Sprint("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
