package encoder

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// recorder is a Runner that captures invocations
type recorder struct {
	calls  [][]string
	stdout []byte
	result Result
}

func (r *recorder) run(ctx context.Context, name string, args ...string) ([]byte, Result) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.stdout, r.result
}

// ============== Scale Tests ==============

func TestScaleFor(t *testing.T) {
	tests := []struct {
		name     string
		dims     Dimensions
		expected string
	}{
		{"Landscape", Dimensions{1920, 1080}, "640:-2"},
		{"Portrait", Dimensions{1080, 1920}, "-2:640"},
		{"Square", Dimensions{800, 800}, "-2:640"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleFor(tt.dims, 640).String(); got != tt.expected {
				t.Errorf("ScaleFor(%v) = %s, want %s", tt.dims, got, tt.expected)
			}
		})
	}
}

// ============== FFmpeg Tests ==============

func TestParseDimensions(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		d, err := ParseDimensions([]byte(`{"programs":[],"streams":[{"width":1280,"height":720}]}`))
		if err != nil {
			t.Fatalf("ParseDimensions() error = %v", err)
		}
		if d.Width != 1280 || d.Height != 720 {
			t.Errorf("ParseDimensions() = %v, want 1280x720", d)
		}
	})

	t.Run("NoStream", func(t *testing.T) {
		_, err := ParseDimensions([]byte(`{"streams":[]}`))
		if !errors.Is(err, ErrNoVideoStream) {
			t.Errorf("error = %v, want ErrNoVideoStream", err)
		}
	})

	t.Run("ZeroSize", func(t *testing.T) {
		if _, err := ParseDimensions([]byte(`{"streams":[{"width":0,"height":720}]}`)); err == nil {
			t.Error("ParseDimensions() should reject zero width")
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := ParseDimensions([]byte("1280x720")); err == nil {
			t.Error("ParseDimensions() should reject non-JSON output")
		}
	})
}

func TestFFmpegProbeDimensions(t *testing.T) {
	rec := &recorder{stdout: []byte(`{"streams":[{"width":640,"height":480}]}`)}
	f := &FFmpeg{FFmpegBinary: "ffmpeg", FFprobeBinary: "ffprobe", run: rec.run}

	d, err := f.ProbeDimensions(context.Background(), "/v/clip.mp4")
	if err != nil {
		t.Fatalf("ProbeDimensions() error = %v", err)
	}
	if d != (Dimensions{640, 480}) {
		t.Errorf("ProbeDimensions() = %v", d)
	}

	call := rec.calls[0]
	if call[0] != "ffprobe" || call[len(call)-1] != "/v/clip.mp4" {
		t.Errorf("unexpected probe call %v", call)
	}
	if !strings.Contains(strings.Join(call, " "), "-select_streams v:0") {
		t.Errorf("probe should select the first video stream: %v", call)
	}

	rec.result = Failure(errors.New("exit status 1"))
	if _, err := f.ProbeDimensions(context.Background(), "/v/clip.mp4"); err == nil {
		t.Error("ProbeDimensions() should fail when ffprobe fails")
	}
}

func TestFFmpegEncodeArgs(t *testing.T) {
	rec := &recorder{}
	f := &FFmpeg{FFmpegBinary: "ffmpeg", FFprobeBinary: "ffprobe", run: rec.run}

	params := VideoParams{
		Scale:      ScaleSpec{Width: 640, Height: -2},
		VideoCodec: "libvpx",
		AudioCodec: "libvorbis",
		CRF:        47,
		Bitrate:    "1M",
	}
	if res := f.EncodeVideo(context.Background(), "in.mp4", "out.webm", params); !res.OK() {
		t.Fatalf("EncodeVideo() = %v", res.Err)
	}

	expected := []string{"ffmpeg", "-y", "-i", "in.mp4", "-vf", "scale=640:-2",
		"-c:v", "libvpx", "-crf", "47", "-b:v", "1M", "-c:a", "libvorbis", "out.webm"}
	if !reflect.DeepEqual(rec.calls[0], expected) {
		t.Errorf("args = %v\nwant %v", rec.calls[0], expected)
	}
}

// ============== CWebP Tests ==============

func TestCWebPArgs(t *testing.T) {
	rec := &recorder{}
	c := &CWebP{Binary: "cwebp", run: rec.run}

	c.EncodeImage(context.Background(), "a.png", "out/a.webp", 90)

	expected := []string{"cwebp", "-q", "90", "a.png", "-o", "out/a.webp"}
	if !reflect.DeepEqual(rec.calls[0], expected) {
		t.Errorf("args = %v, want %v", rec.calls[0], expected)
	}
}

// ============== Exec Tests ==============

func TestExecMissingBinary(t *testing.T) {
	_, res := Exec(context.Background(), "mediacompact-no-such-tool")
	if res.OK() {
		t.Error("Exec() should fail for a missing binary")
	}
}

func TestStderrTail(t *testing.T) {
	if got := stderrTail("line one\nlast line\n\n"); got != ": last line" {
		t.Errorf("stderrTail() = %q", got)
	}
	if got := stderrTail(""); got != "" {
		t.Errorf("stderrTail(empty) = %q", got)
	}
}

// ============== PNG Text Tests ==============

func chunk(kind string, data []byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.WriteString(kind)
	buf.Write(data)
	buf.Write([]byte{0, 0, 0, 0})
	return buf.Bytes()
}

func deflate(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte(s))
	zw.Close()
	return buf.Bytes()
}

func TestReadPNGText(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(pngSignature)
	stream.Write(chunk("IHDR", make([]byte, 13)))
	stream.Write(chunk("tEXt", []byte("parameters\x00a cat, steps: 20\nseed: 1")))
	stream.Write(chunk("tEXt", []byte("parameters\x00duplicate")))
	stream.Write(chunk("tEXt", []byte("Author\x00Jos\xe9")))
	stream.Write(chunk("zTXt", append([]byte("Comment\x00\x00"), deflate(t, "zipped")...)))
	stream.Write(chunk("iTXt", []byte("Title\x00\x00\x00en\x00Titre\x00caf\xc3\xa9")))
	stream.Write(chunk("IDAT", []byte{1, 2, 3}))
	stream.Write(chunk("IEND", nil))

	fields, err := ReadPNGText(&stream)
	if err != nil {
		t.Fatalf("ReadPNGText() error = %v", err)
	}

	expected := map[string]string{
		"parameters": "a cat, steps: 20\nseed: 1",
		"Author":     "José",
		"Comment":    "zipped",
		"Title":      "café",
	}
	if !reflect.DeepEqual(fields, expected) {
		t.Errorf("fields = %v\nwant %v", fields, expected)
	}
}

func TestReadPNGTextRejectsNonPNG(t *testing.T) {
	_, err := ReadPNGText(strings.NewReader("GIF89a..."))
	if !errors.Is(err, ErrNotPNG) {
		t.Errorf("error = %v, want ErrNotPNG", err)
	}
}

func TestReadPNGTextFromEncodedImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	fields, err := ReadPNGText(&buf)
	if err != nil {
		t.Fatalf("ReadPNGText() error = %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want none", fields)
	}
}

// ============== Metadata Tests ==============

func TestEscapeText(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"plain", "plain"},
		{"a\nb", "a&#10;b"},
		{"<x & 'y'>", "&lt;x &amp; &#39;y&#39;&gt;"},
		{"nul\x00byte", "nulbyte"},
		{"crlf\r\n", "crlf&#13;&#10;"},
	}
	for _, tt := range tests {
		if got := EscapeText(tt.in); got != tt.expected {
			t.Errorf("EscapeText(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestUserComment(t *testing.T) {
	if got := UserComment(map[string]string{"parameters": "p", "Author": "a"}); got != "p" {
		t.Errorf("UserComment() = %q, want parameters value", got)
	}
	if got := UserComment(map[string]string{"b": "2", "a": "1"}); got != "a=1&#10;b=2" {
		t.Errorf("UserComment() = %q", got)
	}
}

func TestExifToolWrite(t *testing.T) {
	rec := &recorder{}
	e := &ExifTool{Binary: "exiftool", run: rec.run}
	ctx := context.Background()

	t.Run("NoFieldsSkipsTool", func(t *testing.T) {
		if res := e.WriteTextFields(ctx, "a.webp", nil); !res.OK() {
			t.Errorf("WriteTextFields(nil) = %v", res.Err)
		}
		if len(rec.calls) != 0 {
			t.Errorf("exiftool should not run without fields, got %v", rec.calls)
		}
	})

	t.Run("Parameters", func(t *testing.T) {
		fields := EscapeFields(map[string]string{"parameters": "a\nb"})
		e.WriteTextFields(ctx, "a.webp", fields)

		expected := []string{"exiftool", "-overwrite_original", "-E", "-UserComment=a&#10;b", "a.webp"}
		if !reflect.DeepEqual(rec.calls[0], expected) {
			t.Errorf("args = %v, want %v", rec.calls[0], expected)
		}
	})
}

func TestExifToolRead(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "mediacompact-encoder-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	var stream bytes.Buffer
	stream.Write(pngSignature)
	stream.Write(chunk("tEXt", []byte("parameters\x00steps: 30")))
	stream.Write(chunk("IEND", nil))
	path := filepath.Join(tempDir, "a.png")
	os.WriteFile(path, stream.Bytes(), 0644)

	fields, err := NewExifTool().ReadTextFields(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadTextFields() error = %v", err)
	}
	if fields["parameters"] != "steps: 30" {
		t.Errorf("parameters = %q", fields["parameters"])
	}

	if _, err := NewExifTool().ReadTextFields(context.Background(), filepath.Join(tempDir, "nope.png")); err == nil {
		t.Error("ReadTextFields() should fail for a missing file")
	}
}

// ============== Native Encoder Tests ==============

func TestNativeEncodeImage(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "mediacompact-encoder-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), 128, 255})
		}
	}
	src := filepath.Join(tempDir, "a.png")
	f, _ := os.Create(src)
	png.Encode(f, img)
	f.Close()

	dst := filepath.Join(tempDir, "a.webp")
	if res := NewNative().EncodeImage(context.Background(), src, dst, 80); !res.OK() {
		t.Fatalf("EncodeImage() error = %v", res.Err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WEBP")) {
		t.Error("output is not a WebP container")
	}

	t.Run("UndecodableSource", func(t *testing.T) {
		bad := filepath.Join(tempDir, "bad.png")
		os.WriteFile(bad, []byte("not an image"), 0644)
		out := filepath.Join(tempDir, "bad.webp")

		if res := NewNative().EncodeImage(context.Background(), bad, out, 80); res.OK() {
			t.Error("EncodeImage() should fail for garbage input")
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Error("no output should be left behind")
		}
	})
}

// ============== Dependency Tests ==============

func TestCheckDependencies(t *testing.T) {
	orig := LookPath
	defer func() { LookPath = orig }()

	LookPath = func(name string) (string, error) {
		if name == "ffprobe" || name == "exiftool" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	err := CheckDependencies(Requirements{CWebP: true, FFmpeg: true, ExifTool: true})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("error = %v, want ErrToolNotFound", err)
	}
	var mte *MissingToolError
	if !errors.As(err, &mte) {
		t.Fatalf("error type = %T, want *MissingToolError", err)
	}
	if len(mte.Missing) != 2 || mte.Missing[0].Name != "ffprobe" || mte.Missing[1].Name != "exiftool" {
		t.Errorf("Missing = %v", mte.Missing)
	}
	if !strings.Contains(err.Error(), "ffprobe, exiftool") {
		t.Errorf("Error() = %s", err.Error())
	}

	if err := CheckDependencies(Requirements{CWebP: true}); err != nil {
		t.Errorf("CheckDependencies(cwebp only) error = %v", err)
	}
	if err := CheckDependencies(Requirements{}); err != nil {
		t.Errorf("CheckDependencies(none) error = %v", err)
	}
}
