package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"qidscan/internal/ratelimit/metrics"
	"qidscan/internal/ratelimit/models"
	"qidscan/pkg/platform/httputil"
	"qidscan/pkg/requestcontext"
)

// Store counts requests per key in a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store   Store
	limit   int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) { mw.metrics = m }
}

// New limits each client IP to limit requests per window.
func New(store Store, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	mw := &Middleware{store: store, limit: limit, window: window, logger: logger}
	for _, opt := range opts {
		opt(mw)
	}
	return mw
}

// PerIP returns middleware that rate limits by client IP within class. Requests
// pass through when the store is unavailable.
func (m *Middleware) PerIP(class string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			if ip == "" {
				ip = "unknown"
			}

			res, err := m.store.Allow(ctx, class+":"+ip, m.limit, m.window)
			if err != nil {
				m.logger.WarnContext(ctx, "rate limit check failed, allowing request",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"error", err.Error(),
				)
				if m.metrics != nil {
					m.metrics.StoreErrors.Inc()
				}
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, res)
			if !res.Allowed {
				m.logger.InfoContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"class", class,
					"client_ip", ip,
				)
				if m.metrics != nil {
					m.metrics.Blocked.WithLabelValues(class).Inc()
				}
				writeRateLimitExceeded(w, res)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addRateLimitHeaders(w http.ResponseWriter, res *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.ExceededResponse{
		Error:            "rate_limit_exceeded",
		ErrorDescription: "too many scan requests, retry later",
		RetryAfter:       res.RetryAfter,
	})
}
