package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/mediacompact/pkg/models"
)

// writeSummary prints the end-of-run summary shared by the text formatters
func writeSummary(w io.Writer, p palette, report *models.BatchReport) {
	s := report.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Compaction completed in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Discovered:\n")
	fmt.Fprintf(w, "    Directories:     %d\n", s.Directories)
	fmt.Fprintf(w, "    Images:          %d\n", s.Images)
	fmt.Fprintf(w, "    Videos:          %d\n", s.Videos)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Results:\n")
	fmt.Fprintf(w, "    Succeeded:       %d\n", s.Succeeded)
	fmt.Fprintf(w, "    Kept original:   %d\n", s.KeptOriginal)
	fmt.Fprintf(w, "    Errored:         %d\n", s.Errored)
	fmt.Fprintf(w, "    Conflicts:       %d\n", s.Conflicts)
	fmt.Fprintf(w, "    Unpaired moved:  %d\n", s.Quarantined)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Size:\n")
	fmt.Fprintf(w, "    Before:          %s\n", formatBytes(s.BytesBefore))
	fmt.Fprintf(w, "    After:           %s\n", formatBytes(s.BytesAfter))
	if s.BytesBefore > 0 {
		fmt.Fprintf(w, "    Saved:           %s (%.1f%%)\n",
			formatBytes(s.Saved()), float64(s.Saved())/float64(s.BytesBefore)*100)
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", statusColor(p, report.Status).Sprint(report.Status))

	failed := failedOutcomes(report)
	if len(failed) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, o := range failed {
			fmt.Fprintf(w, "  %s: %s\n", o.File, p.fail.Sprint(lastError(o)))
		}
	}

	var relocFailures []models.RelocationFailure
	for _, rec := range report.Reconciliations {
		relocFailures = append(relocFailures, rec.Failures...)
	}
	if len(relocFailures) > 0 {
		fmt.Fprintf(w, "\nUnpaired files left in place:\n")
		for _, f := range relocFailures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, p.warn.Sprint(f.Error))
		}
	}
}

func statusColor(p palette, s models.BatchStatus) interface{ Sprint(...interface{}) string } {
	switch s {
	case models.StatusSuccess:
		return p.ok
	case models.StatusPartial, models.StatusCancelled:
		return p.warn
	default:
		return p.fail
	}
}

func failedOutcomes(report *models.BatchReport) []models.Outcome {
	var failed []models.Outcome
	for _, o := range report.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// lastError returns the text of the last error message of an outcome
func lastError(o models.Outcome) string {
	for i := len(o.Messages) - 1; i >= 0; i-- {
		if o.Messages[i].Severity == models.SeverityError {
			return o.Messages[i].Text
		}
	}
	return string(o.Status)
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-" + formatBytes(-bytes)
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
