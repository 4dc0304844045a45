package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/h2non/filetype"

	"qidscan/internal/capture/models"
	"qidscan/internal/ocr"
)

// Source yields a card image. The browser camera and the phone handoff are
// sources too; FileSource serves the CLI.
type Source interface {
	Capture(ctx context.Context) (models.Frame, error)
}

// FileSource reads an image file from disk.
type FileSource struct {
	Path string
}

func (f FileSource) Capture(ctx context.Context) (models.Frame, error) {
	if err := ctx.Err(); err != nil {
		return models.Frame{}, err
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return models.Frame{}, fmt.Errorf("read %s: %w", f.Path, err)
	}
	if len(raw) == 0 {
		return models.Frame{}, ocr.ErrEmptyImage
	}
	kind, err := filetype.Image(raw)
	if err != nil || kind == filetype.Unknown {
		return models.Frame{}, fmt.Errorf("%s: %w", f.Path, ocr.ErrUnsupportedFormat)
	}
	return models.Frame{
		ImageData: "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(raw),
		MIME:      kind.MIME.Value,
		Source:    f.Path,
	}, nil
}
