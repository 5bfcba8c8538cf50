package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"madlan-crawler/internal/cleanup"
	"madlan-crawler/internal/frontier"
	"madlan-crawler/internal/governor"
	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

func newTestAdmin(t *testing.T) (*Admin, *frontier.Frontier) {
	t.Helper()
	db, err := storage.Open(storage.BackendSQLite, filepath.Join(t.TempDir(), "admin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fr := frontier.New(db)
	gov := governor.New(governor.Config{RequestsPerMinute: 10})
	return NewAdmin(fr, gov, cleanup.NewService(db), "חיפה"), fr
}

func doRequest(t *testing.T, a *Admin, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	a.Router().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	a, _ := newTestAdmin(t)
	w := doRequest(t, a, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFrontierStatsEndpoint(t *testing.T) {
	a, fr := newTestAdmin(t)
	ctx := context.Background()

	_, err := fr.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/a", "חיפה", 1)
	require.NoError(t, err)
	require.NoError(t, fr.MarkProcessed(ctx, "https://www.madlan.co.il/listings/a", models.OutcomeSuccess, ""))

	w := doRequest(t, a, http.MethodGet, "/api/frontier/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		City  string               `json:"city"`
		Stats models.FrontierStats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "חיפה", body.City)
	assert.Equal(t, 1, body.Stats.Total)
	assert.Equal(t, 1, body.Stats.Successful)
}

func TestFrontierEntriesEndpoint(t *testing.T) {
	a, fr := newTestAdmin(t)

	_, err := fr.EnqueueIfAbsent(context.Background(), "https://www.madlan.co.il/listings/a", "חיפה", 1)
	require.NoError(t, err)

	w := doRequest(t, a, http.MethodGet, "/api/frontier/entries?page=1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries []models.FrontierEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.False(t, body.Entries[0].Processed)
}

func TestFrontierClearEndpoint(t *testing.T) {
	a, fr := newTestAdmin(t)
	ctx := context.Background()

	_, err := fr.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/a", "חיפה", 1)
	require.NoError(t, err)
	_, err = fr.EnqueueIfAbsent(ctx, "https://www.madlan.co.il/listings/b", "תל אביב", 1)
	require.NoError(t, err)

	w := doRequest(t, a, http.MethodPost, "/api/frontier/clear")
	require.Equal(t, http.StatusOK, w.Code)

	// Only the default city was cleared.
	stats, err := fr.Stats(ctx, "תל אביב")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	w = doRequest(t, a, http.MethodPost, "/api/frontier/clear?all=true")
	require.Equal(t, http.StatusOK, w.Code)

	stats, err = fr.Stats(ctx, "תל אביב")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestGovernorStatsEndpoint(t *testing.T) {
	a, _ := newTestAdmin(t)

	w := doRequest(t, a, http.MethodGet, "/api/governor/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats governor.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 10, stats.LimitPerMinute)
}

func TestDedupeEndpoint(t *testing.T) {
	a, _ := newTestAdmin(t)

	w := doRequest(t, a, http.MethodPost, "/api/maintenance/dedupe")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "duplicate_urls")
}
