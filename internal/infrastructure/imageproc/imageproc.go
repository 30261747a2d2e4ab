// Package imageproc validates and normalises the logo and seal images owners upload.
package imageproc

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	_ "golang.org/x/image/webp"
)

// Kind is which of the owner's images is being processed
type Kind string

const (
	KindLogo Kind = "logo"
	KindSeal Kind = "seal"
)

var (
	ErrUnsupportedType = errors.New("image must be PNG, JPEG, GIF or WebP")
	ErrTooLarge        = errors.New("image is too large")
	ErrEmpty           = errors.New("image is empty")
)

var allowed = map[string]bool{
	matchers.TypePng.MIME.Value:  true,
	matchers.TypeJpeg.MIME.Value: true,
	matchers.TypeGif.MIME.Value:  true,
	matchers.TypeWebp.MIME.Value: true,
}

// bounds are the boxes each image is fitted into, in pixels
var bounds = map[Kind]image.Point{
	KindLogo: {X: 600, Y: 200},
	KindSeal: {X: 300, Y: 300},
}

// Processor normalises uploaded images to PNG
type Processor struct {
	maxBytes int64
}

func NewProcessor(maxBytes int64) *Processor {
	return &Processor{maxBytes: maxBytes}
}

// Normalize checks the upload's real type, fits it into the box for kind and
// re-encodes it as PNG. Transparency is kept so a seal can overlap the text.
func (p *Processor) Normalize(kind Kind, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	t, err := filetype.Match(data)
	if err != nil || !allowed[t.MIME.Value] {
		return nil, ErrUnsupportedType
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode image"), ErrUnsupportedType)
	}

	box, ok := bounds[kind]
	if !ok {
		return nil, errors.Newf("unknown image kind %q", kind)
	}
	img := src
	if src.Bounds().Dx() > box.X || src.Bounds().Dy() > box.Y {
		img = imaging.Fit(src, box.X, box.Y, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
