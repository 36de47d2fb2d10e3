package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdejongh/mediacompact/pkg/models"
)

// WriteReport writes the batch report to a file.
// Format can be "human" or "json".
func WriteReport(report *models.BatchReport, path string, format string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	switch format {
	case "json":
		return writeReportJSON(report, file)
	default: // "human"
		return writeReportHuman(report, file)
	}
}

// writeReportHuman writes the per-item outcomes in human-readable format
func writeReportHuman(report *models.BatchReport, w io.Writer) error {
	fmt.Fprintf(w, "Compaction Report\n")
	fmt.Fprintf(w, "=================\n\n")
	fmt.Fprintf(w, "Generated: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(w, "Run ID: %s\n", report.RunID)
	fmt.Fprintf(w, "Root: %s\n", report.Root)
	fmt.Fprintf(w, "Recursive: %v\n", report.Recursive)
	fmt.Fprintf(w, "Status: %s\n\n", report.Status)

	s := report.Stats
	fmt.Fprintf(w, "Items: %d (%d images, %d videos)\n", s.Dispatched, s.Images, s.Videos)
	fmt.Fprintf(w, "Succeeded: %d, kept original: %d, errored: %d\n", s.Succeeded, s.KeptOriginal, s.Errored)
	fmt.Fprintf(w, "Saved: %s of %s\n\n", formatBytes(s.Saved()), formatBytes(s.BytesBefore))

	sections := []struct {
		title string
		match func(models.Outcome) bool
	}{
		{"Errors", func(o models.Outcome) bool { return o.Failed() }},
		{"Conflicts", func(o models.Outcome) bool { return o.ConflictFolder != "" }},
		{"Kept Originals", func(o models.Outcome) bool { return !o.Failed() && o.KeptOriginal }},
		{"Compressed", func(o models.Outcome) bool { return !o.Failed() && !o.KeptOriginal }},
	}

	for _, sec := range sections {
		var items []models.Outcome
		for _, o := range report.Outcomes {
			if sec.match(o) {
				items = append(items, o)
			}
		}
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(w, "%s (%d)\n", sec.title, len(items))
		fmt.Fprintf(w, "%s\n", underline(sec.title))
		for _, o := range items {
			fmt.Fprintf(w, "  %s\n", o.File)
			switch sec.title {
			case "Errors":
				fmt.Fprintf(w, "    %s\n", lastError(o))
			case "Conflicts":
				fmt.Fprintf(w, "    moved to %s\n", o.ConflictFolder)
			default:
				fmt.Fprintf(w, "    %s -> %s\n", formatBytes(o.OriginalSize), formatBytes(o.FinalSize))
			}
		}
		fmt.Fprintf(w, "\n")
	}

	var moved []models.RelocatedFile
	var failed []models.RelocationFailure
	for _, rec := range report.Reconciliations {
		moved = append(moved, rec.Moved...)
		failed = append(failed, rec.Failures...)
	}
	if len(moved) > 0 {
		fmt.Fprintf(w, "Unpaired Files Moved (%d)\n", len(moved))
		fmt.Fprintf(w, "%s\n", underline("Unpaired Files Moved"))
		for _, m := range moved {
			fmt.Fprintf(w, "  %s -> %s\n", m.From, m.To)
		}
		fmt.Fprintf(w, "\n")
	}
	if len(failed) > 0 {
		fmt.Fprintf(w, "Unpaired Files Not Moved (%d)\n", len(failed))
		fmt.Fprintf(w, "%s\n", underline("Unpaired Files Not Moved"))
		for _, f := range failed {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
		fmt.Fprintf(w, "\n")
	}

	return nil
}

// writeReportJSON writes the full report, messages included, as JSON
func writeReportJSON(report *models.BatchReport, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func underline(title string) string {
	b := make([]byte, len(title)+8)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
