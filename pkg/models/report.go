package models

import (
	"time"
)

// BatchReport represents the results of one compaction run
type BatchReport struct {
	// Run details
	RunID     string `json:"run_id"`
	Root      string `json:"root"`
	Recursive bool   `json:"recursive"`

	// Timing
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// Statistics
	Stats Statistics `json:"stats"`

	// Outcomes holds one entry per dispatched item, sorted by file path
	Outcomes []Outcome `json:"outcomes"`

	// Reconciliations holds one entry per reconciled directory
	Reconciliations []ReconcileResult `json:"reconciliations,omitempty"`

	// Overall status
	Status BatchStatus `json:"status"`
}

// Statistics holds run metrics
type Statistics struct {
	Directories  int `json:"directories"`
	Images       int `json:"images"`
	Videos       int `json:"videos"`
	Dispatched   int `json:"dispatched"`
	Succeeded    int `json:"succeeded"`
	Errored      int `json:"errored"`
	KeptOriginal int `json:"kept_original"`
	Conflicts    int `json:"conflicts"`
	Quarantined  int `json:"quarantined"`

	BytesBefore int64 `json:"bytes_before"`
	BytesAfter  int64 `json:"bytes_after"`
}

// Saved returns the bytes saved across successful items
func (s Statistics) Saved() int64 {
	return s.BytesBefore - s.BytesAfter
}

// BatchStatus represents the overall result
type BatchStatus string

const (
	// StatusSuccess indicates every item completed without error
	StatusSuccess BatchStatus = "success"
	// StatusPartial indicates some items failed
	StatusPartial BatchStatus = "partial"
	// StatusFailed indicates the run could not start or enumerate
	StatusFailed BatchStatus = "failed"
	// StatusCancelled indicates the run was interrupted
	StatusCancelled BatchStatus = "cancelled"
)

// ExitCode returns the process exit code for the status.
// Per-item errors are reported, not fatal, so partial exits zero.
func (s BatchStatus) ExitCode() int {
	switch s {
	case StatusSuccess, StatusPartial:
		return 0
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// Tally recomputes Stats from Outcomes and Reconciliations
func (r *BatchReport) Tally() {
	stats := Statistics{Directories: r.Stats.Directories}
	for _, o := range r.Outcomes {
		stats.Dispatched++
		switch o.Kind {
		case KindImage:
			stats.Images++
		case KindVideo:
			stats.Videos++
		}
		if o.ConflictFolder != "" {
			stats.Conflicts++
		}
		if o.Failed() {
			stats.Errored++
			continue
		}
		stats.Succeeded++
		if o.KeptOriginal {
			stats.KeptOriginal++
		}
		if o.FinalSize > 0 {
			stats.BytesBefore += o.OriginalSize
			stats.BytesAfter += o.FinalSize
		}
	}
	for _, rec := range r.Reconciliations {
		stats.Quarantined += len(rec.Moved)
	}
	r.Stats = stats
}
