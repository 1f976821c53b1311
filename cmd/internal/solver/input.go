package solver

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/ledongthuc/pdf"
	_ "golang.org/x/image/bmp"
)

// acceptedImageFormats are the decoder names image.Decode reports for allowed uploads.
var acceptedImageFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
}

// NormalizeImage decodes a jpg/png/gif/bmp upload and re-encodes it as PNG.
// The header is read first; images over maxPixels are rejected before any pixel
// buffer is allocated. maxPixels <= 0 means DefaultMaxImagePixels.
func NormalizeImage(data []byte, maxPixels int64) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedImage
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if !acceptedImageFormats[format] {
		return nil, ErrUnsupportedImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, ImageTooLargeError{Width: cfg.Width, Height: cfg.Height, MaxPixels: maxPixels}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if !acceptedImageFormats[format] {
		return nil, ErrUnsupportedImage
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtractPDFText returns the plain text of every page, each preceded by a
// "--- Page N ---" separator line.
func ExtractPDFText(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(content)
	}
	return b.String(), nil
}
