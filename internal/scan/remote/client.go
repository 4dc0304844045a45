// Package remote forwards scans to another QID scanner over HTTP.
package remote

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"qidscan/internal/scan/models"
	dErrors "qidscan/pkg/domain-errors"
	"qidscan/pkg/platform/circuit"
	"qidscan/pkg/requestcontext"
)

//go:embed result.schema.json
var resultSchema []byte

const (
	processPath     = "/api/v1/qid/process"
	maxResponseSize = 4 << 20
	headerRequestID = "X-Request-ID"
)

// Processor is the local pipeline used while the circuit is open.
type Processor interface {
	Process(ctx context.Context, req models.ProcessRequest) (*models.Result, error)
}

// Metrics tracks remote calls. Zero value is unusable; build with NewMetrics.
type Metrics struct {
	Calls       *prometheus.CounterVec
	Fallbacks   prometheus.Counter
	BreakerOpen prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qidscan_remote_calls_total",
			Help: "Remote scanner calls by outcome category",
		}, []string{"outcome"}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "qidscan_remote_fallbacks_total",
			Help: "Scans served by the local pipeline because the circuit was open",
		}),
		BreakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "qidscan_remote_breaker_open",
			Help: "1 while the remote scanner circuit is open",
		}),
	}
}

// Client calls a remote scanner's process endpoint.
type Client struct {
	baseURL  string
	http     *http.Client
	schema   *jsonschema.Schema
	breaker  *circuit.Breaker
	fallback Processor
	metrics  *Metrics
	logger   *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client built from the timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithFallback serves scans locally while the circuit is open.
func WithFallback(p Processor) Option {
	return func(c *Client) { c.fallback = p }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a client for the scanner at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("remote scanner base URL is required")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("result.schema.json", bytes.NewReader(resultSchema)); err != nil {
		return nil, fmt.Errorf("add result schema: %w", err)
	}
	schema, err := compiler.Compile("result.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile result schema: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		schema:  schema,
		breaker: circuit.New("remote-scanner"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Process forwards req. Transient failures feed the circuit breaker; while it
// is open and a fallback is configured the scan runs locally instead.
func (c *Client) Process(ctx context.Context, req models.ProcessRequest) (*models.Result, error) {
	if strings.TrimSpace(req.ImageData) == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "image_data is required")
	}

	res, err := c.call(ctx, req)
	if err == nil {
		c.observe("success")
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "remote scanner circuit closed", "breaker", c.breaker.Name())
			c.setBreakerGauge(0)
		}
		return res, nil
	}

	category := CategoryOf(err)
	c.observe(string(category))
	logger := c.logger.With("request_id", requestcontext.RequestID(ctx), "category", category)

	if IsRetryable(err) {
		useFallback, change := c.breaker.RecordFailure()
		if change.Opened {
			logger.WarnContext(ctx, "remote scanner circuit opened", "breaker", c.breaker.Name())
			c.setBreakerGauge(1)
		}
		if useFallback && c.fallback != nil {
			logger.WarnContext(ctx, "serving scan from local fallback", "error", err)
			if c.metrics != nil {
				c.metrics.Fallbacks.Inc()
			}
			return c.fallback.Process(ctx, req)
		}
	}

	logger.ErrorContext(ctx, "remote scan failed", "error", err)
	return nil, toDomainError(err)
}

func (c *Client) call(ctx context.Context, req models.ProcessRequest) (*models.Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newError(ErrorInternal, 0, "encode request", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, bytes.NewReader(body))
	if err != nil {
		return nil, newError(ErrorInternal, 0, "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if id := requestcontext.RequestID(ctx); id != "" {
		httpReq.Header.Set(headerRequestID, id)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newError(ErrorTimeout, 0, "request timed out", err)
		}
		return nil, newError(ErrorOutage, 0, "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newError(ErrorTimeout, resp.StatusCode, "reading response timed out", err)
		}
		return nil, newError(ErrorOutage, resp.StatusCode, "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, newError(ErrorRateLimited, resp.StatusCode, "rate limited", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, newError(ErrorOutage, resp.StatusCode, fmt.Sprintf("upstream returned %d", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, newError(ErrorRejected, resp.StatusCode, rejectionMessage(payload), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, newError(ErrorContractMismatch, resp.StatusCode, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, newError(ErrorBadData, resp.StatusCode, "response is not JSON", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return nil, newError(ErrorContractMismatch, resp.StatusCode, "response does not match result schema", err)
	}

	var result models.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, newError(ErrorBadData, resp.StatusCode, "decode result", err)
	}
	result.ProcessingMetadata.Remote = true
	return &result, nil
}

func (c *Client) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.Calls.WithLabelValues(outcome).Inc()
	}
}

func (c *Client) setBreakerGauge(v float64) {
	if c.metrics != nil {
		c.metrics.BreakerOpen.Set(v)
	}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// rejectionMessage pulls error_description out of an error envelope.
func rejectionMessage(payload []byte) string {
	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Description != "" {
		return envelope.Description
	}
	return "request rejected by remote scanner"
}

func toDomainError(err error) error {
	var re *Error
	if !errors.As(err, &re) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "remote scan failed")
	}
	switch re.Category {
	case ErrorTimeout:
		return dErrors.Wrap(err, dErrors.CodeTimeout, "remote scanner timed out")
	case ErrorRejected:
		return dErrors.Wrap(err, dErrors.CodeBadRequest, re.Message)
	case ErrorInternal:
		return dErrors.Wrap(err, dErrors.CodeInternal, "remote scan failed")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "remote scanner unavailable")
	}
}
