package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"qidscan/internal/audit"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/platform/httputil"
	"qidscan/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Lister is the read side of an audit store.
type Lister interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	store  Lister
	logger *slog.Logger
}

func New(store Lister, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the admin audit routes. Callers wrap r with the admin
// token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/v1/admin/audit", h.HandleList)
}

type listResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxLimit)
	}

	events, err := h.store.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Events: events, Count: len(events)})
}
