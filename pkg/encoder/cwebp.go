package encoder

import (
	"context"
	"strconv"
)

// CWebP encodes images with the cwebp command line tool
type CWebP struct {
	Binary string
	run    Runner
}

// NewCWebP returns an encoder invoking cwebp from PATH
func NewCWebP() *CWebP {
	return &CWebP{Binary: "cwebp", run: Exec}
}

// EncodeImage runs cwebp -q <quality> src -o dst
func (c *CWebP) EncodeImage(ctx context.Context, src, dst string, quality int) Result {
	_, res := c.run(ctx, c.Binary, "-q", strconv.Itoa(quality), src, "-o", dst)
	return res
}
