package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qidscan/internal/audit"
	"qidscan/internal/audit/store/memory"
	"qidscan/pkg/requestcontext"
)

func newQueue(t *testing.T, size int) (*audit.Queue, *audit.Metrics) {
	t.Helper()
	m := audit.NewMetrics(prometheus.NewRegistry())
	return audit.NewQueue(size, m, slog.New(slog.NewTextHandler(io.Discard, nil))), m
}

func TestQueue_DrainsOnClose(t *testing.T) {
	q, m := newQueue(t, 16)
	store := memory.NewInMemoryStore()
	w := audit.NewWorker(store, q, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for range 10 {
		q.Emit(context.Background(), audit.Event{Action: audit.ActionScanProcessed, Success: true})
	}
	q.Close()
	w.Run(context.Background())

	events, err := store.ListRecent(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, events, 10)
	assert.Equal(t, 10.0, testutil.ToFloat64(m.Emitted))
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q, m := newQueue(t, 2)

	for range 5 {
		q.Emit(context.Background(), audit.Event{Action: audit.ActionScanFailed})
	}

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Emitted))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Dropped))
}

func TestQueue_FillsFromContext(t *testing.T) {
	q, m := newQueue(t, 4)
	store := memory.NewInMemoryStore()
	w := audit.NewWorker(store, q, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "ua", "mobile")

	q.Emit(ctx, audit.Event{Action: audit.ActionFrameSubmitted})
	q.Close()
	w.Run(context.Background())

	events, err := store.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, "mobile", events[0].DeviceClass)
}

func TestQueue_EmitAfterCloseDrops(t *testing.T) {
	q, m := newQueue(t, 4)
	q.Emit(context.Background(), audit.Event{Action: audit.ActionScanProcessed})
	q.Close()
	q.Close()

	assert.NotPanics(t, func() {
		q.Emit(context.Background(), audit.Event{Action: audit.ActionFrameSubmitted})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Emitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped))
	assert.Equal(t, 1, q.Len())
}

func TestQueue_ConcurrentEmitAndClose(t *testing.T) {
	q, m := newQueue(t, 64)
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Emit(context.Background(), audit.Event{Action: audit.ActionScanProcessed})
		}()
	}
	q.Close()
	wg.Wait()

	assert.Equal(t, 32.0, testutil.ToFloat64(m.Emitted)+testutil.ToFloat64(m.Dropped))
}

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("db down") }
func (failingStore) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, nil
}

func TestWorker_PersistFailureDoesNotStop(t *testing.T) {
	q, m := newQueue(t, 4)
	w := audit.NewWorker(failingStore{}, q, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	q.Emit(context.Background(), audit.Event{Action: audit.ActionScanProcessed})
	q.Emit(context.Background(), audit.Event{Action: audit.ActionScanProcessed})
	q.Close()
	w.Run(context.Background())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PersistFailures))
}

func TestHasher(t *testing.T) {
	h := audit.NewHasher("k1")

	a := h.Hash("28463401234")
	assert.Len(t, a, 64)
	assert.Equal(t, a, h.Hash("28463401234"), "stable for the same subject")
	assert.NotEqual(t, a, h.Hash("28463401235"))
	assert.NotEqual(t, a, audit.NewHasher("k2").Hash("28463401234"), "depends on the key")
	assert.Empty(t, h.Hash(""))
	assert.NotContains(t, a, "28463401234")
}
