package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qidscan/internal/capture"
	scanhandler "qidscan/internal/scan/handler"
	"qidscan/internal/scan/models"
	"qidscan/pkg/qid"
)

// processorFactory builds the scan pipeline for the scan command.
type processorFactory func(ctx context.Context, configPath, remoteURL string) (scanhandler.Processor, error)

var (
	colorOK    = color.New(color.FgGreen, color.Bold)
	colorFail  = color.New(color.FgRed, color.Bold)
	colorLabel = color.New(color.FgCyan)
	tierColors = map[qid.Tier]*color.Color{
		qid.TierHigh:   color.New(color.FgGreen),
		qid.TierMedium: color.New(color.FgYellow),
		qid.TierLow:    color.New(color.FgRed),
	}
)

var (
	errInvalidQID = errors.New("invalid QID")
	errScanFailed = errors.New("scan failed")
)

type options struct {
	jsonOut bool
	noColor bool
	now     func() time.Time
}

func newRootCmd(newProcessor processorFactory) *cobra.Command {
	opts := &options{now: time.Now}
	root := &cobra.Command{
		Use:           "qidctl",
		Short:         "Qatar ID validation and scanning tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of text")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newValidateCmd(opts),
		newFormatCmd(),
		newClassifyCmd(opts),
		newScanCmd(opts, newProcessor),
	)
	return root
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <qid>...",
		Short: "Check QIDs and decode their birth year and nationality",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			results := make([]models.NumberValidation, 0, len(args))
			invalid := false
			for _, arg := range args {
				res := inspect(arg, opts.now())
				invalid = invalid || !res.Valid
				results = append(results, res)
			}

			if opts.jsonOut {
				var v any = results
				if len(results) == 1 {
					v = results[0]
				}
				if err := writeJSON(out, v); err != nil {
					return err
				}
			} else {
				for i, res := range results {
					if len(args) > 1 {
						fmt.Fprintf(out, "%s\n", args[i])
					}
					printValidation(out, res)
				}
			}
			if invalid {
				return errInvalidQID
			}
			return nil
		},
	}
}

func inspect(raw string, now time.Time) models.NumberValidation {
	details, err := qid.Inspect(raw, now)
	if err != nil {
		res := models.NumberValidation{}
		res.Error, _ = err.(*qid.ValidationError)
		return res
	}
	return models.NumberValidation{
		Valid:     true,
		QIDNumber: details.Number,
		Formatted: qid.Format(details.Number),
		Details:   &details,
	}
}

func printValidation(out io.Writer, res models.NumberValidation) {
	if !res.Valid {
		colorFail.Fprintf(out, "invalid: %v\n", res.Error)
		return
	}
	d := res.Details
	colorOK.Fprintf(out, "valid: %s\n", res.Formatted)
	field(out, "Birth year", strconv.Itoa(d.BirthYear))
	field(out, "Age", strconv.Itoa(d.Age))
	field(out, "Nationality", fmt.Sprintf("%s (%s)", d.Nationality, d.NationalityCode))
}

func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <qid>...",
		Short: "Print QIDs grouped as DDD-DDDD-DDDD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				fmt.Fprintln(cmd.OutOrStdout(), qid.Format(arg))
			}
			return nil
		},
	}
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <field=score>...",
		Short: "Map confidence scores to high/medium/low tiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores := make(map[string]float64, len(args))
			for _, arg := range args {
				name, value, ok := strings.Cut(arg, "=")
				if !ok || name == "" {
					return fmt.Errorf("expected field=score, got %q", arg)
				}
				score, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("score for %s: %w", name, err)
				}
				scores[name] = score
			}
			tiers := qid.ClassifyAll(scores)
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"tiers": tiers})
			}
			printScores(cmd.OutOrStdout(), scores)
			return nil
		},
	}
}

func newScanCmd(opts *options, newProcessor processorFactory) *cobra.Command {
	var remoteURL, configPath string
	cmd := &cobra.Command{
		Use:   "scan <image-file>",
		Short: "Extract QID card data from an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			frame, err := capture.FileSource{Path: args[0]}.Capture(ctx)
			if err != nil {
				return err
			}
			processor, err := newProcessor(ctx, configPath, remoteURL)
			if err != nil {
				return err
			}
			res, err := processor.Process(ctx, models.ProcessRequest{
				ImageData: frame.ImageData,
				Metadata:  &models.RequestMetadata{DeviceType: "cli"},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				printResult(out, res)
			}
			if !res.Success {
				return errScanFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&remoteURL, "remote", "", "base URL of a remote QID scanner")
	cmd.Flags().StringVar(&configPath, "config", "", "path to qidscan.yaml")
	return cmd
}

func printResult(w io.Writer, res *models.Result) {
	if res.Error != nil {
		colorFail.Fprintf(w, "%s: %s\n", res.Error.Code, res.Error.Message)
		if res.Validation != nil {
			for _, e := range res.Validation.Errors {
				fmt.Fprintf(w, "  - %s\n", e)
			}
		}
		return
	}
	if res.Data == nil {
		return
	}
	d := res.Data
	colorOK.Fprintf(w, "QID %s\n", d.FormattedQIDNumber)
	field(w, "Name (EN)", d.FullName.English)
	field(w, "Name (AR)", d.FullName.Arabic)
	field(w, "Date of birth", deref(d.DateOfBirth))
	field(w, "Expiry date", deref(d.ExpiryDate))
	field(w, "Nationality", d.Nationality)
	if res.Validation != nil {
		for _, warn := range res.Validation.Warnings {
			color.New(color.FgYellow).Fprintf(w, "warning: %s\n", warn)
		}
	}
	printScores(w, d.ConfidenceScores)
}

func printScores(w io.Writer, scores map[string]float64) {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tier := qid.Classify(scores[name])
		colorLabel.Fprintf(w, "%-18s", name)
		fmt.Fprintf(w, " %.2f ", scores[name])
		tierColors[tier].Fprintln(w, tier)
	}
}

func field(w io.Writer, label, value string) {
	if value == "" {
		value = "-"
	}
	colorLabel.Fprintf(w, "%-14s", label+":")
	fmt.Fprintf(w, " %s\n", value)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
