// Package tesseract adapts the Tesseract OCR library to ocr.Engine. It needs
// cgo and libtesseract at build time, so only binaries import it.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"qidscan/internal/ocr"
)

const (
	digitWhitelist = "0123456789"
	latinWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz "
)

// Engine runs each pass on its own gosseract client; clients are not safe
// for concurrent use.
type Engine struct {
	languages      []string
	tessdataPrefix string
}

// New returns an engine for languages (e.g. "eng", "ara").
func New(languages []string, tessdataPrefix string) *Engine {
	return &Engine{languages: languages, tessdataPrefix: tessdataPrefix}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, png []byte, mode ocr.Mode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := configure(client, mode); err != nil {
		return "", fmt.Errorf("configure %s pass: %w", mode, err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

func configure(client *gosseract.Client, mode ocr.Mode) error {
	switch mode {
	case ocr.ModeNumbers:
		if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
			return err
		}
		return client.SetWhitelist(digitWhitelist)
	case ocr.ModeText:
		if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
			return err
		}
		return client.SetWhitelist(latinWhitelist)
	default:
		return client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	}
}
