// Package encoder wraps the external tools and in-process codecs used to
// re-encode media. Every invocation reports through a uniform Result so
// item processors can treat all adapters alike and tests can substitute
// fakes without running real binaries.
package encoder

import (
	"context"
	"fmt"
)

// Result is the outcome of one adapter invocation
type Result struct {
	// Err is nil on success
	Err error
	// Stderr holds whatever the tool printed, for diagnostics
	Stderr string
}

// OK reports whether the invocation succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Failure builds a failed Result
func Failure(err error) Result {
	return Result{Err: err}
}

// ImageEncoder encodes one image into the compact image format
type ImageEncoder interface {
	EncodeImage(ctx context.Context, src, dst string, quality int) Result
}

// Dimensions is the pixel size of a video's first video stream
type Dimensions struct {
	Width  int
	Height int
}

// VideoEncoder probes and encodes videos
type VideoEncoder interface {
	ProbeDimensions(ctx context.Context, src string) (Dimensions, error)
	EncodeVideo(ctx context.Context, src, dst string, params VideoParams) Result
}

// MetadataAdapter copies descriptive text fields between files
type MetadataAdapter interface {
	ReadTextFields(ctx context.Context, src string) (map[string]string, error)
	WriteTextFields(ctx context.Context, dst string, fields map[string]string) Result
}

// ScaleSpec is an ffmpeg scale filter argument. -2 lets ffmpeg pick the
// other side while keeping it even.
type ScaleSpec struct {
	Width  int
	Height int
}

func (s ScaleSpec) String() string {
	return fmt.Sprintf("%d:%d", s.Width, s.Height)
}

// ScaleFor bounds the longer side of a landscape video, and the height of
// anything else, to max
func ScaleFor(d Dimensions, max int) ScaleSpec {
	if d.Width > d.Height {
		return ScaleSpec{Width: max, Height: -2}
	}
	return ScaleSpec{Width: -2, Height: max}
}

// VideoParams holds everything EncodeVideo needs beyond paths
type VideoParams struct {
	Scale      ScaleSpec
	VideoCodec string
	AudioCodec string
	CRF        int
	Bitrate    string
}
