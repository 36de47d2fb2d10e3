package compact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/models"
)

func hasMessage(o models.Outcome, sev models.Severity, substr string) bool {
	for _, m := range o.Messages {
		if m.Severity == sev && strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// ============== Image Processor Tests ==============

func TestImageProcessorSmaller(t *testing.T) {
	h := NewTestHelper(t)
	src := h.CreateFile("a.png", 400)
	mtime := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, &fakeMetadata{})
	out := p.Process(context.Background(), h.Item("a.png"))

	if out.Failed() {
		t.Fatalf("Process() failed: %+v", out.Messages)
	}
	if out.FinalSize != 100 || out.OriginalSize != 400 || out.KeptOriginal {
		t.Errorf("sizes = %d/%d kept=%v, want 400/100 kept=false", out.OriginalSize, out.FinalSize, out.KeptOriginal)
	}
	if !out.BackedUp {
		t.Error("BackedUp should be true")
	}
	if got := h.Names(h.triple.Output); len(got) != 1 || got[0] != "a.webp" {
		t.Errorf("output = %v, want [a.webp]", got)
	}
	if got := h.Names(h.triple.Backup); len(got) != 1 || got[0] != "a.png" {
		t.Errorf("backup = %v, want [a.png]", got)
	}
	if h.Exists("a.png") {
		t.Error("source should have moved to backup")
	}

	info, err := os.Stat(filepath.Join(h.triple.Output, "a.webp"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("output mtime = %v, want %v", info.ModTime(), mtime)
	}

	if !hasMessage(out, models.SeverityInfo, "Processed image: ") {
		t.Error("missing processed message")
	}
	if !hasMessage(out, models.SeverityInfo, "Compressed image is smaller, kept compressed") {
		t.Error("missing size gate message")
	}
	if !hasMessage(out, models.SeverityInfo, "Moved original image to backup") {
		t.Error("missing backup message")
	}
}

func TestImageProcessorSizeGate(t *testing.T) {
	tests := []struct {
		name    string
		encoded int
	}{
		{"Equal", 400},
		{"Larger", 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestHelper(t)
			h.CreateFile("a.png", 400)

			enc := &fakeImageEncoder{sizes: map[string]int{"a": tt.encoded}}
			p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), enc, nil)
			out := p.Process(context.Background(), h.Item("a.png"))

			if out.Failed() {
				t.Fatalf("Process() failed: %+v", out.Messages)
			}
			if !out.KeptOriginal || out.FinalSize != 400 {
				t.Errorf("kept=%v final=%d, want kept original of 400", out.KeptOriginal, out.FinalSize)
			}
			if got := h.Names(h.triple.Output); len(got) != 1 || got[0] != "a.webp" {
				t.Errorf("output = %v, want the original under the output name", got)
			}
			if data, err := os.ReadFile(filepath.Join(h.triple.Output, "a.webp")); err != nil || len(data) != 400 {
				t.Errorf("output copy = %d bytes, %v; want the 400 byte original", len(data), err)
			}
			if got := h.Names(h.triple.Backup); len(got) != 1 || got[0] != "a.png" {
				t.Errorf("backup = %v, want [a.png]", got)
			}
			if !hasMessage(out, models.SeverityInfo, "larger than original, kept original") {
				t.Error("missing size gate message")
			}
		})
	}
}

func TestImageProcessorEncodeFailure(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("c.png", 400)

	enc := &fakeImageEncoder{fail: map[string]bool{"c": true}, partial: true}
	p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), enc, nil)
	out := p.Process(context.Background(), h.Item("c.png"))

	if !out.Failed() {
		t.Fatal("Process() should fail")
	}
	if !hasMessage(out, models.SeverityError, "Error converting image") {
		t.Errorf("messages = %+v", out.Messages)
	}
	if !h.Exists("c.png") {
		t.Error("source must stay in place")
	}
	if got := h.Names(h.triple.Output); len(got) != 0 {
		t.Errorf("output = %v, partial file should be removed", got)
	}
	if h.Exists("Album_originals_backup") {
		t.Error("no backup should happen")
	}
}

func TestImageProcessorMissingOutput(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("a.png", 400)

	enc := &fakeImageEncoder{noOutput: map[string]bool{"a": true}}
	p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), enc, nil)
	out := p.Process(context.Background(), h.Item("a.png"))

	if !out.Failed() || !hasMessage(out, models.SeverityError, "Failed to create compressed file for") {
		t.Errorf("outcome = %+v", out)
	}
	if !h.Exists("a.png") {
		t.Error("source must stay in place")
	}
}

func TestImageProcessorMetadata(t *testing.T) {
	t.Run("CopiedEscaped", func(t *testing.T) {
		h := NewTestHelper(t)
		h.CreateFile("a.png", 400)
		meta := &fakeMetadata{fields: map[string]string{encoder.ParametersKey: "cat <best> & dog"}}

		p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, meta)
		out := p.Process(context.Background(), h.Item("a.png"))
		if out.Failed() {
			t.Fatalf("Process() failed: %+v", out.Messages)
		}

		dst := filepath.Join(h.triple.Output, "a.webp")
		got := meta.written[dst][encoder.ParametersKey]
		if got != "cat &lt;best&gt; &amp; dog" {
			t.Errorf("written = %q", got)
		}
	})

	t.Run("WriteFailureWarns", func(t *testing.T) {
		h := NewTestHelper(t)
		h.CreateFile("a.png", 400)
		meta := &fakeMetadata{fields: map[string]string{"k": "v"}, writeErr: errors.New("exiftool: exit status 1")}

		p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, meta)
		out := p.Process(context.Background(), h.Item("a.png"))
		if out.Failed() {
			t.Fatal("metadata failure must not fail the item")
		}
		if !hasMessage(out, models.SeverityWarning, "Error writing metadata") {
			t.Errorf("messages = %+v", out.Messages)
		}
		if !out.BackedUp {
			t.Error("processing should go on after a metadata warning")
		}
	})

	t.Run("ReadFailureWarns", func(t *testing.T) {
		h := NewTestHelper(t)
		h.CreateFile("a.png", 400)
		meta := &fakeMetadata{readErr: encoder.ErrNotPNG}

		p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, meta)
		out := p.Process(context.Background(), h.Item("a.png"))
		if out.Failed() || !hasMessage(out, models.SeverityWarning, "Error processing metadata") {
			t.Errorf("outcome = %+v", out)
		}
	})

	t.Run("SkippedForJPEG", func(t *testing.T) {
		h := NewTestHelper(t)
		h.CreateFile("a.jpg", 400)
		meta := &fakeMetadata{fields: map[string]string{"k": "v"}}

		p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, meta)
		p.Process(context.Background(), h.Item("a.jpg"))
		if len(meta.written) != 0 {
			t.Errorf("metadata written for a jpeg: %v", meta.written)
		}
	})
}

func TestImageProcessorBackupDisabled(t *testing.T) {
	h := NewTestHelper(t)
	h.cfg.Processing.BackupOriginals = false
	h.CreateFile("a.png", 400)

	p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, nil)
	out := p.Process(context.Background(), h.Item("a.png"))

	if out.Failed() || out.BackedUp {
		t.Errorf("outcome = %+v", out)
	}
	if !h.Exists("a.png") || !h.Exists("Album_compressed/a.webp") {
		t.Error("source and output should both exist")
	}
	if h.Exists("Album_originals_backup") {
		t.Error("backup folder should not be created")
	}
}

func TestImageProcessorBackupFailure(t *testing.T) {
	h := NewTestHelper(t)
	src := h.CreateFile("a.png", 400)

	backend := &failingMove{Backend: h.backend, path: src}
	p := NewImageProcessor(h.cfg, backend, h.Resolver(), &fakeImageEncoder{}, nil)
	out := p.Process(context.Background(), h.Item("a.png"))

	if !out.Failed() || !hasMessage(out, models.SeverityError, "Error moving original image to backup") {
		t.Errorf("outcome = %+v", out)
	}
	if !h.Exists("a.png") {
		t.Error("source must stay in place")
	}
}

func TestImageProcessorResolvesConflict(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("a.png", 400)
	h.CreateFile("Album_compressed/a.webp", 7)

	p := NewImageProcessor(h.cfg, h.backend, h.Resolver(), &fakeImageEncoder{}, nil)
	out := p.Process(context.Background(), h.Item("a.png"))

	if out.Failed() {
		t.Fatalf("Process() failed: %+v", out.Messages)
	}
	if out.ConflictFolder != h.triple.ConflictFolder("a") {
		t.Errorf("ConflictFolder = %s", out.ConflictFolder)
	}
	if !hasMessage(out, models.SeverityWarning, "Conflicting files moved to") {
		t.Error("missing conflict warning")
	}
	if got := h.Names(h.triple.ConflictFolder("a")); len(got) != 1 {
		t.Errorf("conflict folder = %v", got)
	}
}

// ============== Video Processor Tests ==============

func TestVideoProcessorScale(t *testing.T) {
	tests := []struct {
		name     string
		dims     encoder.Dimensions
		expected encoder.ScaleSpec
	}{
		{"Landscape", encoder.Dimensions{Width: 1920, Height: 1080}, encoder.ScaleSpec{Width: 640, Height: -2}},
		{"Portrait", encoder.Dimensions{Width: 1080, Height: 1920}, encoder.ScaleSpec{Width: -2, Height: 640}},
		{"Square", encoder.Dimensions{Width: 500, Height: 500}, encoder.ScaleSpec{Width: -2, Height: 640}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTestHelper(t)
			h.CreateFile("b.mp4", 1000)

			enc := &fakeVideoEncoder{dims: tt.dims}
			p := NewVideoProcessor(h.cfg, h.backend, h.Resolver(), enc)
			out := p.Process(context.Background(), h.Item("b.mp4"))

			if out.Failed() {
				t.Fatalf("Process() failed: %+v", out.Messages)
			}
			if len(enc.params) != 1 {
				t.Fatalf("encodes = %d, want 1", len(enc.params))
			}
			got := enc.params[0]
			if got.Scale != tt.expected {
				t.Errorf("Scale = %s, want %s", got.Scale, tt.expected)
			}
			if got.CRF != 47 || got.Bitrate != "1M" || got.VideoCodec != "libvpx" || got.AudioCodec != "libvorbis" {
				t.Errorf("params = %+v", got)
			}
			if !h.Exists("Album_compressed/b.webm") || !h.Exists("Album_originals_backup/b.mp4") {
				t.Error("expected output and backup")
			}
		})
	}
}

func TestVideoProcessorProbeFailure(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("b.mp4", 1000)

	enc := &fakeVideoEncoder{probeErr: encoder.ErrNoVideoStream}
	p := NewVideoProcessor(h.cfg, h.backend, h.Resolver(), enc)
	out := p.Process(context.Background(), h.Item("b.mp4"))

	if !out.Failed() || !hasMessage(out, models.SeverityError, "Error getting dimensions for video") {
		t.Errorf("outcome = %+v", out)
	}
	if enc.encodes != 0 {
		t.Errorf("encodes = %d, want none after a failed probe", enc.encodes)
	}
	if h.Exists("Album_compressed") {
		t.Error("output folder should not be created")
	}
	if !h.Exists("b.mp4") {
		t.Error("source must stay in place")
	}
}

func TestVideoProcessorEncodeFailure(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("b.mp4", 1000)

	p := NewVideoProcessor(h.cfg, h.backend, h.Resolver(), &fakeVideoEncoder{fail: true})
	out := p.Process(context.Background(), h.Item("b.mp4"))

	if !out.Failed() || !hasMessage(out, models.SeverityError, "Error compressing video") {
		t.Errorf("outcome = %+v", out)
	}
	if !h.Exists("b.mp4") {
		t.Error("source must stay in place")
	}
}

func TestVideoProcessorKeepsOriginal(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("b.mp4", 1000)

	p := NewVideoProcessor(h.cfg, h.backend, h.Resolver(), &fakeVideoEncoder{size: 1000})
	out := p.Process(context.Background(), h.Item("b.mp4"))

	if out.Failed() || !out.KeptOriginal {
		t.Fatalf("outcome = %+v", out)
	}
	if got := h.Names(h.triple.Output); len(got) != 1 || got[0] != "b.webm" {
		t.Errorf("output = %v, want [b.webm]", got)
	}
	if got := h.Names(h.triple.Backup); len(got) != 1 || got[0] != "b.mp4" {
		t.Errorf("backup = %v, want [b.mp4]", got)
	}
	if !hasMessage(out, models.SeverityInfo, "Compressed video larger than original, kept original") {
		t.Error("missing size gate message")
	}
}
