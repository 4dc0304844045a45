package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qidscan/internal/scan/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/platform/httputil"
	"qidscan/pkg/qid"
	"qidscan/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Processor,NumberService

// Processor scans a card photo. Implemented by the local scan service and the
// remote scanner client.
type Processor interface {
	Process(ctx context.Context, req models.ProcessRequest) (*models.Result, error)
}

// NumberService answers the lightweight QID endpoints.
type NumberService interface {
	ValidateNumber(ctx context.Context, raw string) models.NumberValidation
	Info(ctx context.Context) models.Info
}

type Handler struct {
	processor Processor
	numbers   NumberService
	logger    *slog.Logger
	limiter   func(http.Handler) http.Handler
}

func New(processor Processor, numbers NumberService, logger *slog.Logger) *Handler {
	return &Handler{processor: processor, numbers: numbers, logger: logger}
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

// Register registers the QID routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	h.limited(r).Post("/api/v1/qid/process", h.HandleProcess)
	r.Post("/api/v1/qid/validate", h.HandleValidate)
	r.Post("/api/v1/qid/format", h.HandleFormat)
	r.Post("/api/v1/qid/classify", h.HandleClassify)
	r.Get("/api/v1/qid/info", h.HandleInfo)
}

type numberRequest struct {
	QIDNumber *qid.RawInput `json:"qid_number"`
}

type formatResponse struct {
	Formatted string `json:"formatted"`
}

type classifyRequest struct {
	Scores map[string]float64 `json:"scores"`
}

type classifyResponse struct {
	Tiers map[string]qid.Tier `json:"tiers"`
}

func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.ProcessRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.processor.Process(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to process image")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req numberRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.QIDNumber == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "qid_number is required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.numbers.ValidateNumber(r.Context(), req.QIDNumber.String()))
}

func (h *Handler) HandleFormat(w http.ResponseWriter, r *http.Request) {
	var req numberRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.QIDNumber == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "qid_number is required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, formatResponse{Formatted: qid.Format(req.QIDNumber.String())})
}

func (h *Handler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Scores == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "scores is required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, classifyResponse{Tiers: qid.ClassifyAll(req.Scores)})
}

func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.numbers.Info(r.Context()))
}

// decode reads a JSON body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	ctx := r.Context()
	h.logger.WarnContext(ctx, "invalid request body",
		"request_id", requestcontext.RequestID(ctx),
		"path", r.URL.Path,
		"error", err.Error(),
	)

	msg := "invalid request body"
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		msg = "request body is empty"
	case errors.As(err, &maxErr):
		msg = "request body too large"
	case errors.Is(err, qid.ErrInvalidRawInput):
		msg = "qid_number must be a string or number"
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
	return false
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, msg))
}
