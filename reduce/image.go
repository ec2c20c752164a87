package reduce

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Encoder writes an image in a lossy format at a quality in [1,100].
type Encoder interface {
	Encode(w io.Writer, img image.Image, quality int) error
	Ext() string
	MIME() string
}

// JPEGEncoder is the default Encoder.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

func (JPEGEncoder) Ext() string  { return ".jpg" }
func (JPEGEncoder) MIME() string { return "image/jpeg" }

// MaxPixels caps the decoded size of a source image.
const MaxPixels = 50_000_000

// ErrTooManyPixels is returned by Decode for sources over MaxPixels.
var ErrTooManyPixels = errors.New("image dimensions exceed pixel limit")

// Decode reads a JPEG, PNG, GIF, or WebP image. The header is checked first so
// a source declaring more than MaxPixels is rejected before any allocation.
func Decode(raw []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Flatten composites images that carry transparency or a palette onto an
// opaque white background. Opaque images are returned as is.
func Flatten(img image.Image) image.Image {
	if !needsFlatten(img) {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

func needsFlatten(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return true
}

// ResizeToWidth scales img down to maxWidth, keeping the aspect ratio.
// Images at or under maxWidth are returned unchanged.
func ResizeToWidth(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return img
	}
	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
