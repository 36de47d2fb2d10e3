package output

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// terminalWidth returns the width of w, or 0 when it is not a terminal
func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

// palette holds the colors used by the text formatters. Colors are
// disabled when the writer is not a terminal.
type palette struct {
	ok   *color.Color
	warn *color.Color
	fail *color.Color
	dim  *color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
		dim:  color.New(color.Faint),
	}
	if !isTerminal(w) {
		for _, c := range []*color.Color{p.ok, p.warn, p.fail, p.dim} {
			c.DisableColor()
		}
	}
	return p
}
