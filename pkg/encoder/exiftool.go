package encoder

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ParametersKey is the PNG text keyword image generators store their
// settings under
const ParametersKey = "parameters"

// ExifTool reads PNG text chunks natively and writes them with exiftool
type ExifTool struct {
	Binary string
	run    Runner
}

// NewExifTool returns an adapter invoking exiftool from PATH
func NewExifTool() *ExifTool {
	return &ExifTool{Binary: "exiftool", run: Exec}
}

// ReadTextFields returns the text chunks of a PNG source
func (e *ExifTool) ReadTextFields(ctx context.Context, src string) (map[string]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return ReadPNGText(f)
}

// WriteTextFields stores fields as the UserComment tag of dst. Values
// must already be escaped with EscapeText; -E makes exiftool decode them.
func (e *ExifTool) WriteTextFields(ctx context.Context, dst string, fields map[string]string) Result {
	comment := UserComment(fields)
	if comment == "" {
		return Result{}
	}
	_, res := e.run(ctx, e.Binary, "-overwrite_original", "-E", "-UserComment="+comment, dst)
	return res
}

// UserComment picks the comment text for a set of escaped fields: the
// generation parameters when present, otherwise every field as key=value
// lines in key order
func UserComment(fields map[string]string) string {
	if v, ok := fields[ParametersKey]; ok {
		return v
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, EscapeText(k)+"="+fields[k])
	}
	return strings.Join(lines, "&#10;")
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\x00", "",
)

// EscapeText encodes a value as HTML entities so it survives a single
// command line argument intact. NUL bytes cannot be passed at all and are
// dropped.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeFields applies EscapeText to every value
func EscapeFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = EscapeText(v)
	}
	return out
}
