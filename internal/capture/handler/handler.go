package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"qidscan/internal/capture/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/platform/httputil"
	"qidscan/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service runs capture sessions.
type Service interface {
	CreateSession(ctx context.Context) (*models.Session, error)
	Session(ctx context.Context, id string) (*models.Session, error)
	QRCode(ctx context.Context, id string) ([]byte, error)
	SubmitFrame(ctx context.Context, id, imageData string) (*models.Session, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	limiter func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// WithLimiter rate limits the route that runs OCR.
func (h *Handler) WithLimiter(mw func(http.Handler) http.Handler) *Handler {
	h.limiter = mw
	return h
}

func (h *Handler) limited(r chi.Router) chi.Router {
	if h.limiter == nil {
		return r
	}
	return r.With(h.limiter)
}

// Register registers the capture session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/capture/sessions", h.HandleCreate)
	r.Get("/api/v1/capture/sessions/{id}", h.HandleGet)
	r.Get("/api/v1/capture/sessions/{id}/qr.png", h.HandleQR)
	h.limited(r).Post("/api/v1/capture/sessions/{id}/frames", h.HandleSubmitFrame)
}

type createResponse struct {
	SessionID string        `json:"session_id"`
	Status    models.Status `json:"status"`
	MobileURL string        `json:"mobile_url"`
	QRURL     string        `json:"qr_url"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type frameRequest struct {
	ImageData string `json:"image_data"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.service.CreateSession(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create capture session")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createResponse{
		SessionID: session.ID,
		Status:    session.Status,
		MobileURL: session.MobileURL,
		QRURL:     "/api/v1/capture/sessions/" + session.ID + "/qr.png",
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := h.service.Session(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load capture session")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) HandleQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	png, err := h.service.QRCode(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) HandleSubmitFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req frameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid frame body",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		msg := "invalid request body"
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &maxErr):
			msg = "request body too large"
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return
	}

	session, err := h.service.SubmitFrame(ctx, chi.URLParam(r, "id"), req.ImageData)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to submit frame")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		httputil.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, msg))
}
