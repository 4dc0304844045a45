// Package capture runs desktop-to-mobile scan handoff sessions and provides
// image sources for the CLI.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"qidscan/internal/audit"
	"qidscan/internal/capture/models"
	scanmodels "qidscan/internal/scan/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/platform/sentinel"
	"qidscan/pkg/requestcontext"
)

// Store persists sessions. Get and Claim return sentinel.ErrNotFound for
// unknown ids and sentinel.ErrExpired once ExpiresAt has passed; Claim
// returns sentinel.ErrAlreadyUsed unless the session is still pending.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Claim(ctx context.Context, id string, now time.Time) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
}

// Processor scans a submitted frame.
type Processor interface {
	Process(ctx context.Context, req scanmodels.ProcessRequest) (*scanmodels.Result, error)
}

type Service struct {
	store     Store
	processor Processor
	ttl       time.Duration
	baseURL   string
	qrSize    int
	audit     audit.Emitter
	logger    *slog.Logger
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithPublicBaseURL sets the origin phones use to reach this server.
func WithPublicBaseURL(u string) Option {
	return func(s *Service) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithQRSize(px int) Option {
	return func(s *Service) {
		if px > 0 {
			s.qrSize = px
		}
	}
}

func WithAudit(e audit.Emitter) Option {
	return func(s *Service) { s.audit = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, processor Processor, opts ...Option) *Service {
	s := &Service{
		store:     store,
		processor: processor,
		ttl:       10 * time.Minute,
		baseURL:   "http://localhost:8080",
		qrSize:    256,
		audit:     audit.Nop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a pending session for the calling device.
func (s *Service) CreateSession(ctx context.Context) (*models.Session, error) {
	now := requestcontext.Now(ctx)
	id := uuid.NewString()
	session := &models.Session{
		ID:            id,
		Status:        models.StatusPending,
		MobileURL:     s.baseURL + "/capture/" + id,
		CreatorDevice: requestcontext.DeviceClass(ctx),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create capture session")
	}

	s.logger.InfoContext(ctx, "capture session created",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", id,
		"expires_at", session.ExpiresAt,
	)
	s.audit.Emit(ctx, audit.Event{
		Action:       audit.ActionSessionCreated,
		ProcessingID: id,
		Success:      true,
	})
	return session, nil
}

// Session returns the current state of a session.
func (s *Service) Session(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.store.Get(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return session, nil
}

// QRCode renders the session's mobile URL.
func (s *Service) QRCode(ctx context.Context, id string) ([]byte, error) {
	session, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := RenderQR(session.MobileURL, s.qrSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code")
	}
	return png, nil
}

// SubmitFrame scans the one frame a session accepts and records the outcome.
// Scan failures complete the session as failed rather than returning an error.
func (s *Service) SubmitFrame(ctx context.Context, id, imageData string) (*models.Session, error) {
	if strings.TrimSpace(imageData) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "image_data is required")
	}
	start := time.Now()
	session, err := s.store.Claim(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		return nil, translate(err)
	}

	device := requestcontext.DeviceClass(ctx)
	session.SubmitterDevice = device
	logger := s.logger.With("request_id", requestcontext.RequestID(ctx), "session_id", id)

	res, err := s.processor.Process(ctx, scanmodels.ProcessRequest{
		ImageData: imageData,
		Metadata:  &scanmodels.RequestMetadata{SessionID: id, DeviceType: device},
	})
	switch {
	case err != nil:
		logger.WarnContext(ctx, "capture frame processing failed", "error", err)
		session.Status = models.StatusFailed
		session.Error = clientMessage(err)
	case res.Success:
		session.Status = models.StatusCompleted
		session.Result = res
	default:
		session.Status = models.StatusFailed
		session.Result = res
		if res.Error != nil {
			session.Error = res.Error.Message
		}
	}
	done := requestcontext.Now(ctx)
	session.CompletedAt = &done

	// The outcome must land even if the phone has gone away.
	if err := s.store.Save(context.WithoutCancel(ctx), session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save capture session")
	}

	event := audit.Event{
		Action:       audit.ActionFrameSubmitted,
		ProcessingID: id,
		Success:      session.Status == models.StatusCompleted,
		Duration:     time.Since(start),
	}
	if res != nil && res.Error != nil {
		event.ErrorCode = res.Error.Code
	}
	s.audit.Emit(ctx, event)

	logger.InfoContext(ctx, "capture frame processed", "status", session.Status)
	return session, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "capture session not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.Wrap(err, dErrors.CodeGone, "capture session expired")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "capture session already received a frame")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "capture session lookup failed")
	}
}

func clientMessage(err error) string {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		return de.Message
	}
	return "image processing failed"
}
