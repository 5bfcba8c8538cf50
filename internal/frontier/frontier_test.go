package frontier

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

func newTestFrontier(t *testing.T) *Frontier {
	t.Helper()
	db, err := storage.Open(storage.BackendSQLite, filepath.Join(t.TempDir(), "frontier.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestEnqueueIfAbsentIsIdempotent(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()
	url := "https://www.madlan.co.il/listings/abc123"

	inserted, err := f.EnqueueIfAbsent(ctx, url, "חיפה", 1)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same URL again, even from a different discovery page, is a no-op.
	inserted, err = f.EnqueueIfAbsent(ctx, url, "חיפה", 3)
	require.NoError(t, err)
	assert.False(t, inserted)

	stats, err := f.Stats(ctx, "חיפה")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.LastPage, "original discovery page wins")
}

func TestNextUnprocessedBatchOrdering(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()

	// Discovered out of page order on purpose.
	_, err := f.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/late", "חיפה", 2)
	require.NoError(t, err)
	_, err = f.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/first", "חיפה", 1)
	require.NoError(t, err)
	_, err = f.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/second", "חיפה", 1)
	require.NoError(t, err)

	batch, err := f.NextUnprocessedBatch(ctx, "חיפה", 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "https://www.madlan.co.il/listings/first", batch[0].URL)
	assert.Equal(t, "https://www.madlan.co.il/listings/second", batch[1].URL)
	assert.Equal(t, "https://www.madlan.co.il/listings/late", batch[2].URL)

	limited, err := f.NextUnprocessedBatch(ctx, "חיפה", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMarkProcessedIsMonotonic(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()
	url := "https://www.madlan.co.il/listings/once"

	_, err := f.EnqueueIfAbsent(ctx, url, "חיפה", 1)
	require.NoError(t, err)

	require.NoError(t, f.MarkProcessed(ctx, url, models.OutcomeSuccess, ""))

	// A processed entry never comes back from the batch query.
	batch, err := f.NextUnprocessedBatch(ctx, "חיפה", 10)
	require.NoError(t, err)
	assert.Empty(t, batch)

	// And a second transition is refused rather than silently applied.
	err = f.MarkProcessed(ctx, url, models.OutcomeFailure, "late failure")
	require.Error(t, err)

	entries, err := f.List(ctx, "חיפה", 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.OutcomeSuccess, entries[0].Outcome)
	assert.NotNil(t, entries[0].ProcessedAt)
}

func TestMarkProcessedUnknownURL(t *testing.T) {
	f := newTestFrontier(t)
	err := f.MarkProcessed(context.Background(),
		"https://www.madlan.co.il/listings/ghost", models.OutcomeSuccess, "")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()

	urls := []string{
		"https://www.madlan.co.il/listings/a",
		"https://www.madlan.co.il/listings/b",
		"https://www.madlan.co.il/listings/c",
	}
	for i, u := range urls {
		_, err := f.EnqueueIfAbsent(ctx, u, "חיפה", i+1)
		require.NoError(t, err)
	}
	require.NoError(t, f.MarkProcessed(ctx, urls[0], models.OutcomeSuccess, ""))
	require.NoError(t, f.MarkProcessed(ctx, urls[1], models.OutcomeFailure, "timeout"))

	stats, err := f.Stats(ctx, "חיפה")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.LastPage)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Unprocessed)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 1, stats.Failed)

	// Another city's frontier is untouched.
	other, err := f.Stats(ctx, "תל אביב")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Total)
}

func TestClearScopedToCity(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()

	_, err := f.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/h1", "חיפה", 1)
	require.NoError(t, err)
	_, err = f.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/t1", "תל אביב", 1)
	require.NoError(t, err)

	removed, err := f.Clear(ctx, "חיפה")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := f.Stats(ctx, "תל אביב")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	removed, err = f.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestListPaginates(t *testing.T) {
	f := newTestFrontier(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.EnqueueIfAbsent(ctx,
			fmt.Sprintf("https://www.madlan.co.il/listings/p%d", i), "חיפה", 1)
		require.NoError(t, err)
	}

	first, err := f.List(ctx, "חיפה", 1, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	third, err := f.List(ctx, "חיפה", 3, 2)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Greater(t, third[0].ID, first[1].ID)
}
