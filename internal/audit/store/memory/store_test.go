package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qidscan/internal/audit"
)

func TestInMemoryStore_ListRecentNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.Append(ctx, audit.Event{Action: audit.ActionScanProcessed, ProcessingID: id}))
	}

	events, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "p3", events[0].ProcessingID)
	assert.Equal(t, "p2", events[1].ProcessingID)

	all, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s.Clear()
	none, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
