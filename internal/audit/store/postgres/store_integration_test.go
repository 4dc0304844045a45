//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qidscan/internal/audit"
	auditpg "qidscan/internal/audit/store/postgres"
	"qidscan/internal/platform/config"
	pgplatform "qidscan/internal/platform/postgres"
	"qidscan/pkg/testutil/containers"
)

func TestStore_AppendAndListRecent(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	db, err := pgplatform.Open(ctx, config.Database{URL: pg.DSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, pgplatform.Migrate(ctx, db))

	store := auditpg.New(db)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	for i, action := range []audit.Action{audit.ActionSessionCreated, audit.ActionScanProcessed, audit.ActionScanFailed} {
		errCode := ""
		if action == audit.ActionScanFailed {
			errCode = "NO_TEXT_EXTRACTED"
		}
		require.NoError(t, store.Append(ctx, audit.Event{
			Action:       action,
			ProcessingID: fmt.Sprintf("proc-%d", i),
			SubjectHash:  "abc123",
			Success:      action != audit.ActionScanFailed,
			ErrorCode:    errCode,
			Duration:     1500 * time.Millisecond,
			DeviceClass:  "mobile",
			RequestID:    "req-1",
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	latest := events[0]
	assert.Equal(t, audit.ActionScanFailed, latest.Action)
	assert.False(t, latest.Success)
	assert.Equal(t, "NO_TEXT_EXTRACTED", latest.ErrorCode)
	assert.Equal(t, 1500*time.Millisecond, latest.Duration)
	assert.True(t, latest.Timestamp.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, audit.ActionScanProcessed, events[1].Action)
}

func TestMigrateIsIdempotent(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()

	db, err := pgplatform.Open(ctx, config.Database{URL: pg.DSN})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, pgplatform.Migrate(ctx, db))
	require.NoError(t, pgplatform.Migrate(ctx, db))
}
