package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external command and returns its stdout.
// Adapters hold one so tests can record arguments instead of running tools.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, Result)

// Exec runs name with args, capturing stdout and stderr. The process is
// detached from ctx cancellation: an encode that has started always runs
// to completion so it never leaves a truncated artifact behind.
func Exec(ctx context.Context, name string, args ...string) ([]byte, Result) {
	cmd := exec.CommandContext(context.WithoutCancel(ctx), name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stderr: stderr.String()}
	if err != nil {
		res.Err = fmt.Errorf("%s: %w%s", name, err, stderrTail(res.Stderr))
	}
	return stdout.Bytes(), res
}

// stderrTail returns the last non-empty stderr line, formatted for an
// error suffix
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return ": " + line
		}
	}
	return ""
}
