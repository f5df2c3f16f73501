package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/naryn-heritage/heritage-backend/internal/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewCompressorDefaults(t *testing.T) {
	c := imaging.NewCompressor(0, 0, 0)
	assert.Equal(t, uint(1920), c.MaxWidth)
	assert.Equal(t, uint(1080), c.MaxHeight)
	assert.Equal(t, 85, c.Quality)
}

func TestCompressShrinksToBoundingBox(t *testing.T) {
	c := imaging.NewCompressor(100, 50, 85)

	out, err := c.Compress(bytes.NewReader(encodePNG(t, 400, 100, color.NRGBA{R: 200, A: 255})))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestCompressDoesNotUpscale(t *testing.T) {
	c := imaging.NewCompressor(1920, 1080, 85)

	out, err := c.Compress(bytes.NewReader(encodePNG(t, 40, 30, color.NRGBA{G: 100, A: 255})))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestCompressFlattensTransparency(t *testing.T) {
	c := imaging.NewCompressor(0, 0, 100)

	out, err := c.Compress(bytes.NewReader(encodePNG(t, 8, 8, color.NRGBA{})))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestCompressRejectsGarbage(t *testing.T) {
	_, err := imaging.NewCompressor(0, 0, 0).Compress(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, imaging.ErrUnsupportedImage)
}
