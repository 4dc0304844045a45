// Command qidctl validates, formats and scans Qatar ID cards from the shell.
package main

import (
	"context"
	"os"

	"github.com/fatih/color"

	"qidscan/internal/ocr/tesseract"
	"qidscan/internal/platform/config"
	"qidscan/internal/platform/logger"
	"qidscan/internal/scan"
	scanhandler "qidscan/internal/scan/handler"
	"qidscan/internal/scan/remote"
)

func main() {
	cmd := newRootCmd(buildProcessor)
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildProcessor returns the local Tesseract pipeline, or a remote client when
// remoteURL is set.
func buildProcessor(_ context.Context, configPath, remoteURL string) (scanhandler.Processor, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, "text")
	if remoteURL == "" {
		remoteURL = cfg.OCR.RemoteURL
	}
	if remoteURL != "" {
		return remote.New(remoteURL, cfg.OCR.RemoteTimeout, remote.WithLogger(log))
	}
	return scan.New(
		tesseract.New(cfg.OCR.Languages, cfg.OCR.TessdataPrefix),
		scan.WithMaxImageWidth(cfg.OCR.MaxImageWidth),
		scan.WithLogger(log),
	), nil
}
