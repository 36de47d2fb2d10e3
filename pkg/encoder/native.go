package encoder

import (
	"bufio"
	"context"
	"fmt"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/chai2010/webp"
	"github.com/disintegration/imageorient"
)

// Native encodes images in-process with libwebp, for hosts without cwebp.
// Decoding goes through the image package; the webp import registers its
// decoder there, so jpeg, png and webp sources are supported. The EXIF
// orientation of a jpeg is applied to the pixels, since the WebP output
// carries no EXIF block.
type Native struct{}

// NewNative returns the in-process encoder
func NewNative() *Native {
	return &Native{}
}

// EncodeImage decodes src and writes a lossy WebP at dst. A partial dst is
// removed on failure.
func (n *Native) EncodeImage(ctx context.Context, src, dst string, quality int) Result {
	in, err := os.Open(src)
	if err != nil {
		return Failure(fmt.Errorf("open source: %w", err))
	}
	defer in.Close()

	img, format, err := imageorient.Decode(bufio.NewReader(in))
	if err != nil {
		return Failure(fmt.Errorf("decode image: %w", err))
	}

	out, err := os.Create(dst)
	if err != nil {
		return Failure(fmt.Errorf("create output: %w", err))
	}

	w := bufio.NewWriter(out)
	if err := webp.Encode(w, img, &webp.Options{Quality: float32(quality)}); err != nil {
		out.Close()
		os.Remove(dst)
		return Failure(fmt.Errorf("encode %s as webp: %w", format, err))
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(dst)
		return Failure(fmt.Errorf("write output: %w", err))
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return Failure(fmt.Errorf("close output: %w", err))
	}

	return Result{}
}
