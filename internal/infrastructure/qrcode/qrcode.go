// Package qrcode renders download links as scannable PNG codes.
package qrcode

import (
	"encoding/base64"

	"github.com/cockroachdb/errors"
	goqrcode "github.com/skip2/go-qrcode"
)

const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

// Encoder produces QR code images
type Encoder interface {
	PNG(content string, size int) ([]byte, error)
}

type encoder struct {
	level goqrcode.RecoveryLevel
}

// NewEncoder uses medium error correction, which survives a phone camera at an angle
func NewEncoder() Encoder {
	return &encoder{level: goqrcode.Medium}
}

// PNG encodes content into a size x size PNG. Out of range sizes are clamped.
func (e *encoder) PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr content is empty")
	}
	png, err := goqrcode.Encode(content, e.level, ClampSize(size))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode qr code")
	}
	return png, nil
}

func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// DataURI wraps PNG bytes so a client can drop them straight into an <img>
func DataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
