package output

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sdejongh/mediacompact/pkg/models"
)

// JSONFormatter prints a single JSON document when the batch completes,
// for automation and scripting
type JSONFormatter struct {
	writer io.Writer

	mu      sync.Mutex
	workers int
}

// JSONReportData represents the final report
type JSONReportData struct {
	RunID      string             `json:"run_id"`
	Root       string             `json:"root"`
	Status     string             `json:"status"`
	Workers    int                `json:"workers"`
	Duration   string             `json:"duration"`
	DurationMs int64              `json:"duration_ms"`
	Stats      JSONStatsData      `json:"stats"`
	Items      []JSONItemData     `json:"items"`
	Unpaired   []JSONUnpairedData `json:"unpaired,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	models.Statistics
	BytesSaved int64 `json:"bytes_saved"`
}

// JSONItemData represents the outcome of one item
type JSONItemData struct {
	File           string   `json:"file"`
	Kind           string   `json:"kind"`
	Status         string   `json:"status"`
	OriginalSize   int64    `json:"original_size"`
	FinalSize      int64    `json:"final_size"`
	KeptOriginal   bool     `json:"kept_original"`
	BackedUp       bool     `json:"backed_up"`
	ConflictFolder string   `json:"conflict_folder,omitempty"`
	Error          string   `json:"error,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// JSONUnpairedData represents a file moved, or not, by pairing reconciliation
type JSONUnpairedData struct {
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter writing to w, or to
// stdout when w is nil
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w}
}

// Start records the pool size
func (f *JSONFormatter) Start(totalItems int, workers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.workers = workers
	return nil
}

// Progress is silent to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the report as indented JSON
func (f *JSONFormatter) Complete(report *models.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(buildJSONReport(report, f.workers))
}

// Error writes the error as a JSON object
func (f *JSONFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return json.NewEncoder(f.writer).Encode(map[string]string{
		"status": string(models.StatusFailed),
		"error":  err.Error(),
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func buildJSONReport(report *models.BatchReport, workers int) JSONReportData {
	data := JSONReportData{
		RunID:      report.RunID,
		Root:       report.Root,
		Status:     string(report.Status),
		Workers:    workers,
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats:      JSONStatsData{Statistics: report.Stats, BytesSaved: report.Stats.Saved()},
		Items:      make([]JSONItemData, 0, len(report.Outcomes)),
	}

	for _, o := range report.Outcomes {
		item := JSONItemData{
			File:           o.File,
			Kind:           string(o.Kind),
			Status:         string(o.Status),
			OriginalSize:   o.OriginalSize,
			FinalSize:      o.FinalSize,
			KeptOriginal:   o.KeptOriginal,
			BackedUp:       o.BackedUp,
			ConflictFolder: o.ConflictFolder,
		}
		if o.Failed() {
			item.Error = lastError(o)
		}
		for _, m := range o.Messages {
			if m.Severity == models.SeverityWarning {
				item.Warnings = append(item.Warnings, m.Text)
			}
		}
		data.Items = append(data.Items, item)
	}

	for _, rec := range report.Reconciliations {
		for _, m := range rec.Moved {
			data.Unpaired = append(data.Unpaired, JSONUnpairedData{From: m.From, To: m.To})
		}
		for _, fail := range rec.Failures {
			data.Unpaired = append(data.Unpaired, JSONUnpairedData{From: fail.Path, Error: fail.Error})
		}
	}

	return data
}
