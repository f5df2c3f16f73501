package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

var ErrUnsupportedImage = errors.New("unsupported or corrupt image")

// Compressor shrinks images to fit a bounding box and re-encodes them as JPEG.
type Compressor struct {
	MaxWidth  uint
	MaxHeight uint
	Quality   int
}

func NewCompressor(maxWidth, maxHeight uint, quality int) *Compressor {
	if maxWidth == 0 {
		maxWidth = 1920
	}
	if maxHeight == 0 {
		maxHeight = 1080
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Compressor{MaxWidth: maxWidth, MaxHeight: maxHeight, Quality: quality}
}

// Compress decodes r (JPEG, PNG or GIF) and returns JPEG bytes no larger than
// the bounding box. Aspect ratio is preserved and small images are not upscaled.
func (c *Compressor) Compress(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	b := img.Bounds()
	if uint(b.Dx()) > c.MaxWidth || uint(b.Dy()) > c.MaxHeight {
		img = resize.Thumbnail(c.MaxWidth, c.MaxHeight, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites transparent pixels onto white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
