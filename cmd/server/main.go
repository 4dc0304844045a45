package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"qidscan/internal/audit"
	audithandler "qidscan/internal/audit/handler"
	auditmemory "qidscan/internal/audit/store/memory"
	auditpostgres "qidscan/internal/audit/store/postgres"
	"qidscan/internal/capture"
	capturehandler "qidscan/internal/capture/handler"
	capturememory "qidscan/internal/capture/store/memory"
	captureredis "qidscan/internal/capture/store/redis"
	httpapi "qidscan/internal/http"
	"qidscan/internal/ocr/tesseract"
	"qidscan/internal/platform/config"
	"qidscan/internal/platform/httpserver"
	"qidscan/internal/platform/logger"
	"qidscan/internal/platform/metrics"
	"qidscan/internal/platform/postgres"
	platformredis "qidscan/internal/platform/redis"
	ratelimitmetrics "qidscan/internal/ratelimit/metrics"
	ratelimit "qidscan/internal/ratelimit/middleware"
	"qidscan/internal/ratelimit/store/bucket"
	"qidscan/internal/scan"
	scanhandler "qidscan/internal/scan/handler"
	"qidscan/internal/scan/remote"
	"qidscan/pkg/platform/middleware/metadata"
)

const shutdownTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "qidscan: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(os.Getenv("QIDSCAN_CONFIG"))
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	reg := prometheus.DefaultRegisterer
	checks := map[string]httpapi.HealthCheck{}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		auditStore = auditpostgres.New(db)
		checks["postgres"] = db.PingContext
		log.Info("audit trail stored in postgres")
	}

	auditMetrics := audit.NewMetrics(reg)
	queue := audit.NewQueue(cfg.Audit.BufferSize, auditMetrics, log)
	worker := audit.NewWorker(auditStore, queue, auditMetrics, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(context.Background())
	}()
	hasher := audit.NewHasher(cfg.Audit.HashKey)

	local := scan.New(
		tesseract.New(cfg.OCR.Languages, cfg.OCR.TessdataPrefix),
		scan.WithMaxImageWidth(cfg.OCR.MaxImageWidth),
		scan.WithAudit(queue, hasher),
		scan.WithMetrics(scan.NewMetrics(reg)),
		scan.WithLogger(log),
	)
	var processor scanhandler.Processor = local
	if cfg.OCR.RemoteURL != "" {
		opts := []remote.Option{remote.WithLogger(log), remote.WithMetrics(remote.NewMetrics(reg))}
		if cfg.OCR.RemoteFallback {
			opts = append(opts, remote.WithFallback(local))
		}
		client, err := remote.New(cfg.OCR.RemoteURL, cfg.OCR.RemoteTimeout, opts...)
		if err != nil {
			return err
		}
		processor = client
		log.Info("forwarding scans to remote scanner", "url", cfg.OCR.RemoteURL, "fallback", cfg.OCR.RemoteFallback)
	}

	var sessions capture.Store = capturememory.NewInMemoryStore()
	var buckets ratelimit.Store = bucket.NewInMemoryBucketStore()
	rc, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		defer rc.Close()
		sessions = captureredis.New(rc.Client)
		buckets = bucket.NewRedisBucketStore(rc.Client)
		checks["redis"] = rc.Health
		log.Info("capture sessions and rate limits stored in redis")
	}
	captureSvc := capture.NewService(sessions, processor,
		capture.WithTTL(cfg.Capture.SessionTTL),
		capture.WithPublicBaseURL(cfg.Capture.PublicBaseURL),
		capture.WithQRSize(cfg.Capture.QRSize),
		capture.WithAudit(queue),
		capture.WithLogger(log),
	)

	scanRoutes := scanhandler.New(processor, local, log)
	captureRoutes := capturehandler.New(captureSvc, log)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(buckets, cfg.RateLimit.Requests, cfg.RateLimit.Window, log,
			ratelimit.WithMetrics(ratelimitmetrics.New(reg)))
		perIP := limiter.PerIP("scan")
		scanRoutes.WithLimiter(perIP)
		captureRoutes.WithLimiter(perIP)
	}

	if cfg.Audit.AdminToken == "" {
		log.Warn("audit.admin_token is not set; admin routes will reject every request")
	}

	trustedProxies, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Metrics:        metrics.New(reg),
		Gatherer:       prometheus.DefaultGatherer,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		AdminToken:     cfg.Audit.AdminToken,
		TrustedProxies: trustedProxies,
		Public: []httpapi.Registrar{
			scanRoutes,
			captureRoutes,
		},
		Admin:  []httpapi.Registrar{audithandler.New(auditStore, log)},
		Checks: checks,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting qidscan", "addr", cfg.Server.Addr, "version", scan.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	queue.Close()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("audit queue not drained before shutdown", "pending", queue.Len())
	}
	log.Info("qidscan stopped")
	return nil
}
