package batch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	for i, status := range []Status{StatusSucceeded, StatusFailed, StatusSucceeded} {
		require.NoError(t, h.Record(ctx, Entry{
			RunID:      "run-" + string(rune('a'+i)),
			UserID:     "1",
			Date:       base.AddDate(0, 0, i).Format("2006-01-02"),
			Team:       "daily_analysis_1",
			Status:     status,
			StartedAt:  base.AddDate(0, 0, i),
			FinishedAt: base.AddDate(0, 0, i).Add(time.Minute),
		}))
	}

	got, err := h.Recent(ctx, "1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-c", got[0].RunID)
	assert.Equal(t, "run-b", got[1].RunID)
	assert.Equal(t, StatusFailed, got[1].Status)
	assert.True(t, got[0].FinishedAt.Equal(base.AddDate(0, 0, 2).Add(time.Minute)))

	err = h.Record(ctx, Entry{RunID: "run-a", UserID: "1", StartedAt: base, FinishedAt: base})
	assert.Error(t, err, "one entry per run and subject")

	none, err := h.Recent(ctx, "2", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
