// Package scan turns a card photo into validated QID card data.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"qidscan/internal/audit"
	"qidscan/internal/extraction"
	"qidscan/internal/ocr"
	"qidscan/internal/scan/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/qid"
	"qidscan/pkg/requestcontext"
)

// Version is reported by Info. Overridden at link time.
var Version = "1.0"

const tracerName = "qidscan/internal/scan"

// Service runs the local scan pipeline: decode, prepare, OCR passes,
// extraction and validation.
type Service struct {
	engine   ocr.Engine
	maxWidth int
	audit    audit.Emitter
	hasher   *audit.Hasher
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithMaxImageWidth(w int) Option {
	return func(s *Service) { s.maxWidth = w }
}

// WithAudit records one event per scan; subjects are hashed with hasher.
func WithAudit(e audit.Emitter, hasher *audit.Hasher) Option {
	return func(s *Service) {
		s.audit = e
		s.hasher = hasher
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(engine ocr.Engine, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		maxWidth: ocr.DefaultMaxWidth,
		audit:    audit.Nop{},
		hasher:   audit.NewHasher(""),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process scans req. Scan failures (no text, invalid data, unreadable image)
// are reported in the returned Result with Success=false; the error return
// is reserved for malformed requests and cancellation.
func (s *Service) Process(ctx context.Context, req models.ProcessRequest) (*models.Result, error) {
	if strings.TrimSpace(req.ImageData) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "image_data is required")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	processingID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "scan.Process", trace.WithAttributes(
		attribute.String("scan.processing_id", processingID),
		attribute.String("ocr.engine", s.engine.Name()),
	))
	defer span.End()

	logger := s.logger.With("processing_id", processingID, "request_id", requestcontext.RequestID(ctx))
	logger.InfoContext(ctx, "starting qid scan")

	result := &models.Result{
		ProcessingMetadata: s.metadata(ctx, req, processingID, now),
	}

	data, validation, err := s.run(ctx, logger, req)
	switch {
	case err != nil && ctx.Err() != nil:
		span.SetStatus(codes.Error, "cancelled")
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "scan cancelled before completion")
	case err != nil:
		result.Error = err
	default:
		s.fill(result, data, validation)
	}
	result.ProcessingMetadata.ProcessingTime = time.Since(start).Seconds()

	outcome := "success"
	if result.Error != nil {
		outcome = strings.ToLower(result.Error.Code)
		span.SetStatus(codes.Error, result.Error.Code)
	}
	span.SetAttributes(attribute.Bool("scan.success", result.Success))
	if s.metrics != nil {
		s.metrics.ObserveScan(outcome, start)
		if data.Found {
			s.metrics.OverallScore.Observe(data.Scores[extraction.ScoreOverall])
		}
	}
	s.emit(ctx, result, data, time.Since(start))

	logger.InfoContext(ctx, "qid scan completed",
		"success", result.Success,
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// run executes the pipeline. A non-nil *models.ScanError means the scan
// stopped early.
func (s *Service) run(ctx context.Context, logger *slog.Logger, req models.ProcessRequest) (extraction.Data, extraction.Validation, *models.ScanError) {
	raw, err := ocr.DecodeImageData(req.ImageData)
	if err != nil {
		return extraction.Data{}, extraction.Validation{}, processingFailed(err)
	}
	img, info, err := ocr.Prepare(raw, s.maxWidth)
	if err != nil {
		logger.WarnContext(ctx, "image rejected", "error", err, "format", info.Format,
			"width", info.OriginalWidth, "height", info.OriginalHeight)
		return extraction.Data{}, extraction.Validation{}, processingFailed(err)
	}

	passes, err := ocr.RunPasses(ctx, s.engine, img, logger)
	if err != nil {
		return extraction.Data{}, extraction.Validation{}, processingFailed(err)
	}
	if s.metrics != nil {
		for _, p := range passes {
			if p.Err != nil {
				s.metrics.PassFailures.WithLabelValues(string(p.Mode)).Inc()
			}
		}
	}

	combined := passes.Combined()
	if strings.TrimSpace(combined) == "" {
		return extraction.Data{}, extraction.Validation{}, &models.ScanError{
			Code:    models.CodeNoTextExtracted,
			Message: "No text could be extracted from the image",
			Details: "OCR failed to detect any readable text",
		}
	}

	now := requestcontext.Now(ctx)
	data := extraction.Extract(combined, passes.Texts(), now)
	return data, extraction.Validate(data, now), nil
}

func (s *Service) fill(result *models.Result, data extraction.Data, v extraction.Validation) {
	result.Validation = &v
	scores := v.Scores
	if data.Found {
		details := data.Details
		result.Data = &models.CardData{
			QIDNumber:          data.QIDNumber,
			FormattedQIDNumber: qid.Format(data.QIDNumber),
			FullName:           data.Names,
			DateOfBirth:        optional(data.DateOfBirth),
			Nationality:        data.Nationality,
			ExpiryDate:         optional(data.ExpiryDate),
			DocumentType:       extraction.DocumentType,
			ConfidenceScores:   data.Scores,
			QIDDetails:         &details,
		}
		scores = data.Scores
	}
	result.ConfidenceTiers = qid.ClassifyAll(scores)
	result.Success = data.Found && v.Valid
	if !v.Valid {
		result.Error = &models.ScanError{
			Code:    models.CodeValidationFailed,
			Message: "Extracted data failed validation",
			Details: v.Errors,
		}
	}
}

func (s *Service) metadata(ctx context.Context, req models.ProcessRequest, id string, now time.Time) models.ProcessingMetadata {
	md := models.ProcessingMetadata{
		ProcessingID:   id,
		Timestamp:      now,
		OCREnginesUsed: []string{s.engine.Name()},
	}
	device := requestcontext.DeviceClass(ctx)
	if req.Metadata != nil {
		if req.Metadata.DeviceType != "" {
			device = req.Metadata.DeviceType
		}
		md.SessionID = optional(req.Metadata.SessionID)
	}
	md.DeviceType = optional(device)
	return md
}

func (s *Service) emit(ctx context.Context, result *models.Result, data extraction.Data, took time.Duration) {
	event := audit.Event{
		Action:       audit.ActionScanProcessed,
		ProcessingID: result.ProcessingMetadata.ProcessingID,
		SubjectHash:  s.hasher.Hash(data.QIDNumber),
		Success:      result.Success,
		Duration:     took,
	}
	if result.Error != nil {
		event.Action = audit.ActionScanFailed
		event.ErrorCode = result.Error.Code
	}
	if result.ProcessingMetadata.DeviceType != nil {
		event.DeviceClass = *result.ProcessingMetadata.DeviceType
	}
	s.audit.Emit(ctx, event)
}

// ValidateNumber checks a typed-in QID, including the birth-year plausibility
// check, and records the outcome.
func (s *Service) ValidateNumber(ctx context.Context, raw string) models.NumberValidation {
	details, err := qid.Inspect(raw, requestcontext.Now(ctx))
	out := models.NumberValidation{}
	if err != nil {
		out.Error, _ = err.(*qid.ValidationError)
	} else {
		out.Valid = true
		out.QIDNumber = details.Number
		out.Formatted = qid.Format(details.Number)
		out.Details = &details
	}

	result := "valid"
	if out.Error != nil {
		result = string(out.Error.Kind)
	}
	if s.metrics != nil {
		s.metrics.NumberValidation.WithLabelValues(result).Inc()
	}
	event := audit.Event{
		Action:      audit.ActionQIDValidated,
		SubjectHash: s.hasher.Hash(out.QIDNumber),
		Success:     out.Valid,
	}
	if out.Error != nil {
		event.ErrorCode = string(out.Error.Kind)
	}
	s.audit.Emit(ctx, event)
	return out
}

// Info describes the service and its capabilities.
func (s *Service) Info(ctx context.Context) models.Info {
	return models.Info{
		Service:     "QID Scanner",
		Version:     Version,
		Description: "Qatar ID document processing and validation service",
		Capabilities: []string{
			"QID image processing",
			"Text extraction using OCR",
			"QID number validation",
			"Personal information extraction",
			"Date parsing and validation",
			"Desktop to mobile capture handoff",
		},
		SupportedFormats: []string{"JPEG", "PNG", "GIF", "BMP", "TIFF", "WebP", "Base64 encoded images"},
		OCREngine:        s.engine.Name(),
		Timestamp:        requestcontext.Now(ctx),
	}
}

func processingFailed(err error) *models.ScanError {
	return &models.ScanError{
		Code:    models.CodeProcessingFailed,
		Message: fmt.Sprintf("Image processing failed: %v", err),
		Details: "Unexpected error during processing",
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
