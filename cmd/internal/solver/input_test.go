package solver

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func sampleImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	for x := 0; x < 4; x++ {
		for y := 0; y < 3; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 80), B: 200, A: 255})
		}
	}
	return img
}

func TestNormalizeImage_AcceptedFormats(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"png":  func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) },
		"jpeg": func(b *bytes.Buffer, m image.Image) error { return jpeg.Encode(b, m, nil) },
		"gif":  func(b *bytes.Buffer, m image.Image) error { return gif.Encode(b, m, nil) },
		"bmp":  func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, enc(&buf, sampleImage()))

			out, err := NormalizeImage(buf.Bytes(), 0)
			require.NoError(t, err)

			decoded, format, err := image.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, "png", format)
			assert.Equal(t, image.Rect(0, 0, 4, 3), decoded.Bounds())
		})
	}
}

func TestNormalizeImage_Rejects(t *testing.T) {
	_, err := NormalizeImage(nil, 0)
	require.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = NormalizeImage([]byte("definitely not an image"), 0)
	require.ErrorIs(t, err, ErrUnsupportedImage)

	// A PNG signature with a truncated body is a decode error, not a format error.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage()))
	_, err = NormalizeImage(buf.Bytes()[:20], 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedImage)
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG, leaving the pixel data as is.
func withPNGSize(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalizeImage_PixelLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, sampleImage()))

	_, err := NormalizeImage(buf.Bytes(), 12)
	require.NoError(t, err)

	_, err = NormalizeImage(buf.Bytes(), 11)
	require.ErrorIs(t, err, ErrImageTooLarge)

	// Only the header is read: a 12000x12000 claim is refused without decoding pixels.
	huge := withPNGSize(t, buf.Bytes(), 12000, 12000)
	_, err = NormalizeImage(huge, 0)
	require.ErrorIs(t, err, ErrImageTooLarge)

	var tooLarge ImageTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, 12000, tooLarge.Width)
	assert.Equal(t, int64(DefaultMaxImagePixels), tooLarge.MaxPixels)
}

// buildPDF assembles a minimal PDF whose pages each show one line of text.
func buildPDF(pages ...string) []byte {
	var objs []string
	// 1: catalog, 2: pages, 3: font, then (page, content) pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestExtractPDFText_PagesWithSeparators(t *testing.T) {
	text, err := ExtractPDFText(buildPDF("Solve x plus 2", "Find y"))
	require.NoError(t, err)

	first := strings.Index(text, "\n--- Page 1 ---\n")
	second := strings.Index(text, "\n--- Page 2 ---\n")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.Contains(t, text[first:second], "Solve x plus 2")
	assert.Contains(t, text[second:], "Find y")
}

func TestExtractPDFText_Garbage(t *testing.T) {
	_, err := ExtractPDFText([]byte("not a pdf"))
	require.Error(t, err)

	_, err = ExtractPDFText(nil)
	require.Error(t, err)
}
