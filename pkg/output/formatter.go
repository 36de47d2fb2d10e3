package output

import (
	"github.com/sdejongh/mediacompact/pkg/models"
)

// Progress update types
const (
	UpdateItemComplete = "item_complete"
	UpdateReconciled   = "reconciled"
)

// ProgressUpdate represents a progress notification during a batch
type ProgressUpdate struct {
	Type string

	// Current is the shared completed-item counter after this update
	Current int
	Total   int

	// Outcome is set for item_complete
	Outcome *models.Outcome

	// Reconcile is set for reconciled
	Reconcile *models.ReconcileResult
}

// Formatter defines the interface for output formatting.
// Calls may come from several workers; implementations serialize them.
type Formatter interface {
	// Start initializes the formatter for a new batch
	Start(totalItems int, workers int) error

	// Progress reports progress during the batch
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(report *models.BatchReport) error

	// Error reports a fatal error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}
