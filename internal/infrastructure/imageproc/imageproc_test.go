package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestNormalizeFitsAndConvertsToPNG(t *testing.T) {
	p := NewProcessor(5 << 20)

	out, err := p.Normalize(KindSeal, encodeJPEG(t, solid(900, 600)))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(120, 40)))

	out, err := NewProcessor(0).Normalize(KindLogo, buf.Bytes())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
}

func TestNormalizeRejects(t *testing.T) {
	p := NewProcessor(1024)

	_, err := p.Normalize(KindLogo, nil)
	assert.True(t, errors.Is(err, ErrEmpty))

	_, err = p.Normalize(KindLogo, []byte("%PDF-1.7 not an image"))
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = p.Normalize(KindLogo, make([]byte, 2048))
	assert.True(t, errors.Is(err, ErrTooLarge))
}
