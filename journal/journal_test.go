package journal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsharvest"
)

func TestJournalRecordAndQuery(t *testing.T) {
	j, err := Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	defer j.Close()

	started := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	run := Run{
		ID:         uuid.New(),
		Site:       "tagesblatt",
		Mode:       newsharvest.ModeSitemap,
		Since:      "2025-06-01",
		Until:      "2025-06-03",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Links:      42,
		ItemErrors: 1,
		Outcome:    "ok",
	}
	require.NoError(t, j.Record(run))

	runs, err := j.LastRuns("tagesblatt", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, newsharvest.ModeSitemap, got.Mode)
	assert.Equal(t, "2025-06-01", got.Since)
	assert.Equal(t, 42, got.Links)
	assert.Equal(t, 1, got.ItemErrors)
	assert.Equal(t, "ok", got.Outcome)
	assert.True(t, got.StartedAt.Equal(started))
}

func TestJournalLastRunsOrderAndLimit(t *testing.T) {
	j, err := Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Record(Run{
			Site:       "x",
			Mode:       newsharvest.ModeLinkFeed,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Outcome:    "ok",
		}))
	}

	runs, err := j.LastRuns("x", 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	// Newest first.
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[1].StartedAt.After(runs[2].StartedAt))
}

func TestJournalAssignsID(t *testing.T) {
	j, err := Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(Run{
		Site: "x", Mode: newsharvest.ModeArticle,
		StartedAt: time.Now(), FinishedAt: time.Now(), Outcome: "ok",
	}))

	runs, err := j.LastRuns("x", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEqual(t, uuid.Nil, runs[0].ID)
}

func TestJournalSiteIsolation(t *testing.T) {
	j, err := Open(t.TempDir() + "/journal.db")
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(Run{Site: "a", Mode: newsharvest.ModeSitemap,
		StartedAt: time.Now(), FinishedAt: time.Now(), Outcome: "ok"}))

	runs, err := j.LastRuns("b", 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
