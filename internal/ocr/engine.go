// Package ocr prepares card photos and runs text recognition over them.
package ocr

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Mode selects how an engine is tuned for a pass.
type Mode string

const (
	// ModeDefault reads the card as a uniform block of text.
	ModeDefault Mode = "default"
	// ModeNumbers restricts recognition to digits, single word.
	ModeNumbers Mode = "numbers"
	// ModeText restricts recognition to Latin letters and spaces.
	ModeText Mode = "text"
)

// Modes is the pass order; RunPasses output follows it.
var Modes = []Mode{ModeDefault, ModeNumbers, ModeText}

//go:generate mockgen -source=engine.go -destination=mocks/engine_mock.go -package=mocks Engine

// Engine recognizes text in a prepared PNG. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, png []byte, mode Mode) (string, error)
}

// Pass is the outcome of one Recognize call. Err is kept for logging only; a
// failed pass contributes empty text.
type Pass struct {
	Mode Mode
	Text string
	Err  error
}

// Passes is the ordered result of RunPasses.
type Passes []Pass

// RunPasses runs every mode concurrently. Individual pass failures are logged
// and yield empty text; only cancellation of ctx is returned as an error.
func RunPasses(ctx context.Context, engine Engine, png []byte, logger *slog.Logger) (Passes, error) {
	out := make(Passes, len(Modes))
	var mu sync.Mutex
	var g errgroup.Group
	for i, mode := range Modes {
		g.Go(func() error {
			text, err := engine.Recognize(ctx, png, mode)
			if err != nil {
				logger.WarnContext(ctx, "ocr pass failed",
					"engine", engine.Name(),
					"mode", string(mode),
					"error", err,
				)
				text = ""
			}
			mu.Lock()
			out[i] = Pass{Mode: mode, Text: strings.TrimSpace(text), Err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Texts returns each pass's text in order, empty ones included.
func (p Passes) Texts() []string {
	texts := make([]string, len(p))
	for i, pass := range p {
		texts[i] = pass.Text
	}
	return texts
}

// Combined joins the non-empty pass texts with newlines.
func (p Passes) Combined() string {
	var parts []string
	for _, pass := range p {
		if pass.Text != "" {
			parts = append(parts, pass.Text)
		}
	}
	return strings.Join(parts, "\n")
}
