package encoder

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrToolNotFound is wrapped by MissingToolError
var ErrToolNotFound = errors.New("required tool not found on PATH")

// Tool describes one external binary
type Tool struct {
	Name    string
	Purpose string
	Install string
}

// ToolStatus is the lookup result for one tool
type ToolStatus struct {
	Tool
	Path  string
	Found bool
}

// MissingToolError lists every required tool absent from PATH
type MissingToolError struct {
	Missing []Tool
}

func (e *MissingToolError) Error() string {
	names := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		names[i] = t.Name
	}
	return fmt.Sprintf("missing required tools: %s", strings.Join(names, ", "))
}

func (e *MissingToolError) Unwrap() error {
	return ErrToolNotFound
}

// Requirements selects which tools a run needs
type Requirements struct {
	CWebP    bool
	FFmpeg   bool
	ExifTool bool
}

// RequiredTools lists the tools implied by req
func RequiredTools(req Requirements) []Tool {
	var tools []Tool
	if req.CWebP {
		tools = append(tools, Tool{Name: "cwebp", Purpose: "image encoding", Install: installHint("webp")})
	}
	if req.FFmpeg {
		tools = append(tools,
			Tool{Name: "ffmpeg", Purpose: "video encoding", Install: installHint("ffmpeg")},
			Tool{Name: "ffprobe", Purpose: "video probing", Install: installHint("ffmpeg")},
		)
	}
	if req.ExifTool {
		tools = append(tools, Tool{Name: "exiftool", Purpose: "metadata copy", Install: "Refer to https://exiftool.org/ for installation"})
	}
	return tools
}

// LookPath is exec.LookPath; tests replace it
var LookPath = exec.LookPath

// Inspect reports the PATH status of each tool
func Inspect(tools []Tool) []ToolStatus {
	statuses := make([]ToolStatus, len(tools))
	for i, t := range tools {
		path, err := LookPath(t.Name)
		statuses[i] = ToolStatus{Tool: t, Path: path, Found: err == nil}
	}
	return statuses
}

// CheckDependencies returns a *MissingToolError when any required tool is
// absent
func CheckDependencies(req Requirements) error {
	var missing []Tool
	for _, s := range Inspect(RequiredTools(req)) {
		if !s.Found {
			missing = append(missing, s.Tool)
		}
	}
	if len(missing) > 0 {
		return &MissingToolError{Missing: missing}
	}
	return nil
}

// installHint returns platform-specific installation instructions
func installHint(pkg string) string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install " + pkg
	case "linux":
		return "Install with: apt-get install " + pkg + " (Ubuntu/Debian) or dnf install " + pkg + " (Fedora/RHEL)"
	case "windows":
		return "Download " + pkg + " and add it to PATH"
	default:
		return "Install " + pkg + " and add it to PATH"
	}
}
