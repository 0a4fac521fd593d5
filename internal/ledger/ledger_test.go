package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/dispatch-os/internal/database"
	"github.com/blockedby/dispatch-os/internal/models"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err, "Failed to open in-memory database")
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(db.GORM)
}

func TestRepository_Append_OneEntryPerRecipient(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, repo.Append(ctx, runID, "a@x.com", models.OutcomeSent))
	require.NoError(t, repo.Append(ctx, runID, "b@x.com", models.OutcomeFailed))

	entries, err := repo.EntriesByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "a@x.com", entries[0].Email)
	assert.Equal(t, models.OutcomeSent, entries[0].Status)
	assert.Equal(t, "b@x.com", entries[1].Email)
	assert.Equal(t, models.OutcomeFailed, entries[1].Status)
}

func TestRepository_EntriesByRun_TimestampsNonDecreasing(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "a@x.com"}
	for _, e := range emails {
		require.NoError(t, repo.Append(ctx, runID, e, models.OutcomeSent))
	}

	entries, err := repo.EntriesByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, entries, len(emails))

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].CreatedAt.Before(entries[i-1].CreatedAt),
			"entry %d older than entry %d", i, i-1)
	}
}

func TestRepository_EntriesByRun_IsolatedPerRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	runA := uuid.New()
	runB := uuid.New()

	require.NoError(t, repo.Append(ctx, runA, "a@x.com", models.OutcomeSent))
	require.NoError(t, repo.Append(ctx, runB, "b@x.com", models.OutcomeSent))

	entries, err := repo.EntriesByRun(ctx, runA)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a@x.com", entries[0].Email)
}

func TestRepository_Snapshot_Empty(t *testing.T) {
	repo := newTestRepo(t)

	snap, err := repo.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0, snap.Sent)
	assert.Equal(t, 0, snap.Failed)
	assert.Empty(t, snap.Daily)
}

func TestRepository_Snapshot_Identities(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, repo.Append(ctx, runID, "a@x.com", models.OutcomeSent))
	require.NoError(t, repo.Append(ctx, runID, "b@x.com", models.OutcomeSent))
	require.NoError(t, repo.Append(ctx, runID, "c@x.com", models.OutcomeFailed))

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 2, snap.Sent)
	assert.Equal(t, 1, snap.Failed)

	// total = sent + failed, and the daily breakdown covers every entry
	assert.Equal(t, snap.Total, snap.Sent+snap.Failed)

	dailySum := 0
	for _, d := range snap.Daily {
		dailySum += d.Count
	}
	assert.Equal(t, snap.Total, dailySum)

	// all appended just now, so a single UTC day bucket
	require.Len(t, snap.Daily, 1)
}

func TestRepository_Snapshot_MixedOutcomeScenario(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	runID := uuid.New()

	require.NoError(t, repo.Append(ctx, runID, "a@x.com", models.OutcomeSent))
	require.NoError(t, repo.Append(ctx, runID, "b@x.com", models.OutcomeFailed))

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 1, snap.Sent)
	assert.Equal(t, 1, snap.Failed)
}
