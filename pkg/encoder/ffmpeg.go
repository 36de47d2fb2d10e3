package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// FFmpeg probes with ffprobe and encodes with ffmpeg
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
	run           Runner
}

// NewFFmpeg returns an adapter invoking ffmpeg and ffprobe from PATH
func NewFFmpeg() *FFmpeg {
	return &FFmpeg{FFmpegBinary: "ffmpeg", FFprobeBinary: "ffprobe", run: Exec}
}

// ProbeDimensions reads the width and height of the first video stream
func (f *FFmpeg) ProbeDimensions(ctx context.Context, src string) (Dimensions, error) {
	out, res := f.run(ctx, f.FFprobeBinary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		src,
	)
	if !res.OK() {
		return Dimensions{}, res.Err
	}
	return ParseDimensions(out)
}

// EncodeVideo transcodes src into dst, overwriting any stale partial dst
func (f *FFmpeg) EncodeVideo(ctx context.Context, src, dst string, p VideoParams) Result {
	_, res := f.run(ctx, f.FFmpegBinary, EncodeArgs(src, dst, p)...)
	return res
}

// EncodeArgs builds the ffmpeg argument list for one encode
func EncodeArgs(src, dst string, p VideoParams) []string {
	return []string{
		"-y",
		"-i", src,
		"-vf", "scale=" + p.Scale.String(),
		"-c:v", p.VideoCodec,
		"-crf", strconv.Itoa(p.CRF),
		"-b:v", p.Bitrate,
		"-c:a", p.AudioCodec,
		dst,
	}
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
}

// ErrNoVideoStream is returned when ffprobe reports no usable video stream
var ErrNoVideoStream = errors.New("no video stream found")

// ParseDimensions extracts dimensions from ffprobe JSON output.
// Exported for testing without a real ffprobe binary.
func ParseDimensions(data []byte) (Dimensions, error) {
	var raw probeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Dimensions{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if len(raw.Streams) == 0 {
		return Dimensions{}, ErrNoVideoStream
	}
	s := raw.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return Dimensions{}, fmt.Errorf("invalid dimensions %dx%d", s.Width, s.Height)
	}
	return Dimensions{Width: s.Width, Height: s.Height}, nil
}
