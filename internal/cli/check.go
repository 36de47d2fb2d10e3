package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdejongh/mediacompact/pkg/compact"
	"github.com/sdejongh/mediacompact/pkg/encoder"
)

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that the external tools are installed",
		Long: `List the external tools mediacompact can call and whether each is on PATH.
Exits non-zero when a tool required by the current configuration is missing.`,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	required := make(map[string]bool)
	for _, t := range encoder.RequiredTools(compact.Requirements(cfg)) {
		required[t.Name] = true
	}

	all := encoder.RequiredTools(encoder.Requirements{CWebP: true, FFmpeg: true, ExifTool: true})
	statuses := encoder.Inspect(all)
	writeToolStatuses(os.Stdout, statuses, required)

	var missing []encoder.Tool
	for _, s := range statuses {
		if !s.Found && required[s.Name] {
			missing = append(missing, s.Tool)
		}
	}
	if len(missing) > 0 {
		return &encoder.MissingToolError{Missing: missing}
	}

	fmt.Fprintln(os.Stdout, color.GreenString("All required tools are installed."))
	return nil
}

func writeToolStatuses(w io.Writer, statuses []encoder.ToolStatus, required map[string]bool) {
	for _, s := range statuses {
		need := "optional"
		if required[s.Name] {
			need = "required"
		}
		if s.Found {
			fmt.Fprintf(w, "%s %-9s %-16s %s\n", color.GreenString("✓"), s.Name, "("+s.Purpose+")", s.Path)
			continue
		}

		mark := color.YellowString("-")
		if required[s.Name] {
			mark = color.RedString("✗")
		}
		fmt.Fprintf(w, "%s %-9s %-16s not found, %s\n", mark, s.Name, "("+s.Purpose+")", need)
		fmt.Fprintf(w, "    %s\n", s.Install)
	}
}

// printMissingTools explains a failed dependency check
func printMissingTools(w io.Writer, err error) {
	var missing *encoder.MissingToolError
	if !errors.As(err, &missing) {
		return
	}
	for _, t := range missing.Missing {
		fmt.Fprintf(w, "%s %s is required for %s\n", color.RedString("✗"), t.Name, t.Purpose)
		fmt.Fprintf(w, "    %s\n", t.Install)
	}
	fmt.Fprintln(w, "Run with --skip-checks to start anyway.")
}
