package ocr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	MinWidth        = 200
	MinHeight       = 100
	DefaultMaxWidth = 1200
)

var (
	ErrEmptyImage         = errors.New("image data is empty")
	ErrInvalidEncoding    = errors.New("image data is not valid base64")
	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrImageTooSmall      = errors.New("image too small")
	ErrImageDecodeFailure = errors.New("image could not be decoded")
)

// ImageInfo describes the frame as received and as handed to the engine.
type ImageInfo struct {
	Format         string `json:"format"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// DecodeImageData accepts raw base64 or a data URL ("data:image/jpeg;base64,...").
func DecodeImageData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("%w: data URL has no payload", ErrInvalidEncoding)
		}
		s = payload
	}
	if s == "" {
		return nil, ErrEmptyImage
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some capture libraries emit unpadded or URL-safe output
		if alt, altErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); altErr == nil {
			return alt, nil
		}
		if alt, altErr := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); altErr == nil {
			return alt, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return raw, nil
}

// Prepare turns an uploaded image into the grayscale PNG the engine reads.
// Images narrower than MinWidth or shorter than MinHeight are rejected; wider
// than maxWidth are downscaled preserving aspect ratio.
func Prepare(raw []byte, maxWidth int) ([]byte, ImageInfo, error) {
	if len(raw) == 0 {
		return nil, ImageInfo{}, ErrEmptyImage
	}
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if !filetype.IsImage(raw) {
		return nil, ImageInfo{}, ErrUnsupportedFormat
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ImageInfo{}, fmt.Errorf("%w: %v", ErrImageDecodeFailure, err)
	}

	b := src.Bounds()
	info := ImageInfo{Format: format, OriginalWidth: b.Dx(), OriginalHeight: b.Dy()}
	if b.Dx() < MinWidth || b.Dy() < MinHeight {
		return nil, info, fmt.Errorf("%w: %dx%d. Minimum size: %dx%d",
			ErrImageTooSmall, b.Dx(), b.Dy(), MinWidth, MinHeight)
	}

	w, h := b.Dx(), b.Dy()
	if w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
	}
	gray := image.NewGray(image.Rect(0, 0, w, h))
	if w == b.Dx() {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	}
	stretchContrast(gray)
	info.Width, info.Height = w, h

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, info, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), info, nil
}

// stretchContrast maps the darkest pixel to black and the lightest to white.
func stretchContrast(img *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, p := range img.Pix {
		lo = min(lo, p)
		hi = max(hi, p)
	}
	if hi <= lo {
		return
	}
	span := int(hi) - int(lo)
	for i, p := range img.Pix {
		img.Pix[i] = uint8((int(p) - int(lo)) * 255 / span)
	}
}
