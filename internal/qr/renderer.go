package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Renderer encodes URLs as PNG QR codes with low error correction.
type Renderer struct {
	// Size is the image width in pixels. Negative values mean pixels per module.
	Size int
}

func NewRenderer(size int) *Renderer {
	if size == 0 {
		size = -10
	}
	return &Renderer{Size: size}
}

func (r *Renderer) Render(url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("qr: empty url")
	}
	png, err := qrcode.Encode(url, qrcode.Low, r.Size)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	return png, nil
}
