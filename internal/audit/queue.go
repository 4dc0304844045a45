package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"qidscan/pkg/requestcontext"
)

// Queue is a bounded, non-blocking Emitter. Events that do not fit are
// dropped and counted; a scan never waits on the audit trail.
type Queue struct {
	events  chan Event
	metrics *Metrics
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding at most size pending events.
func NewQueue(size int, metrics *Metrics, logger *slog.Logger) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{events: make(chan Event, size), metrics: metrics, logger: logger}
}

// Emit enqueues event, filling Timestamp and RequestID from ctx when unset.
func (q *Queue) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.DeviceClass == "" {
		event.DeviceClass = requestcontext.DeviceClass(ctx)
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.metrics.Dropped.Inc()
		q.logger.WarnContext(ctx, "audit queue closed, event dropped",
			"action", event.Action,
			"processing_id", event.ProcessingID,
		)
		return
	}

	select {
	case q.events <- event:
		q.metrics.Emitted.Inc()
	default:
		q.metrics.Dropped.Inc()
		q.logger.WarnContext(ctx, "audit queue full, event dropped",
			"action", event.Action,
			"processing_id", event.ProcessingID,
		)
	}
}

// Close stops accepting events. The worker drains what is left and returns.
// Events emitted afterwards are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.events)
}

// Len reports pending events.
func (q *Queue) Len() int {
	return len(q.events)
}

// Worker consumes audit events from a Queue and persists them.
type Worker struct {
	store   Store
	queue   *Queue
	metrics *Metrics
	logger  *slog.Logger
	timeout time.Duration
}

func NewWorker(store Store, queue *Queue, metrics *Metrics, logger *slog.Logger) *Worker {
	return &Worker{store: store, queue: queue, metrics: metrics, logger: logger, timeout: 5 * time.Second}
}

// Run persists events until the queue is closed and drained. A failed write
// is logged and counted; it does not stop the worker.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.queue.events {
		w.persist(ctx, event)
	}
}

func (w *Worker) persist(ctx context.Context, event Event) {
	// detached so shutdown cancellation does not lose the tail of the queue
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()
	if err := w.store.Append(writeCtx, event); err != nil {
		w.metrics.PersistFailures.Inc()
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"error", err,
			"action", event.Action,
			"processing_id", event.ProcessingID,
		)
	}
}
