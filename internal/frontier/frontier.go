// Package frontier is the persistent queue of discovered property
// URLs. State lives entirely in the property_urls_cache table so a
// crawl resumes exactly where it stopped after a restart: only
// MarkProcessed advances an entry, and it runs as the last step of a
// processing cycle.
package frontier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

// Frontier manages discovered property URLs.
type Frontier struct {
	db storage.DB
}

// New returns a frontier over db.
func New(db storage.DB) *Frontier {
	return &Frontier{db: db}
}

// EnqueueIfAbsent records a newly discovered URL with its provenance.
// The unique constraint on url is the de-duplication mechanism; an
// already-known URL reports inserted=false and is not an error.
func (f *Frontier) EnqueueIfAbsent(ctx context.Context, url, city string, page int) (bool, error) {
	inserted := false
	err := f.db.Transact(ctx, func(s storage.Store) error {
		var exists int
		err := s.Get(ctx, &exists, "SELECT 1 FROM property_urls_cache WHERE url = ?", url)
		if err == nil {
			return nil
		}
		if !storage.IsNoRows(err) {
			return fmt.Errorf("check frontier url: %w", err)
		}

		var id int64
		if err := s.Get(ctx, &id, "SELECT COALESCE(MAX(id), 0) + 1 FROM property_urls_cache"); err != nil {
			return fmt.Errorf("next frontier id: %w", err)
		}

		_, err = s.Exec(ctx, `
			INSERT INTO property_urls_cache
				(id, url, source_city, discovered_at_page, discovered_at, processed, outcome, error_message)
			VALUES (?, ?, ?, ?, ?, FALSE, '', '')`,
			id, url, city, page, time.Now())
		if err != nil {
			// Lost a race to another writer on the same URL: the
			// unique constraint fired, which still means "known".
			if isUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("enqueue %s: %w", url, err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// NextUnprocessedBatch returns up to limit unprocessed entries for a
// city, oldest discovery first. Entries already marked processed are
// never returned again.
func (f *Frontier) NextUnprocessedBatch(ctx context.Context, city string, limit int) ([]models.FrontierEntry, error) {
	var out []models.FrontierEntry
	err := f.db.Select(ctx, &out, `
		SELECT * FROM property_urls_cache
		WHERE source_city = ? AND processed = FALSE
		ORDER BY discovered_at_page ASC, id ASC
		LIMIT ?`, city, limit)
	if err != nil {
		return nil, fmt.Errorf("next unprocessed batch for %s: %w", city, err)
	}
	return out, nil
}

// MarkProcessed flips an entry to processed with its outcome. The
// transition is monotonic: a processed entry is never reset here, so
// the WHERE clause refuses to touch one.
func (f *Frontier) MarkProcessed(ctx context.Context, url, outcome, errorMessage string) error {
	res, err := f.db.Exec(ctx, `
		UPDATE property_urls_cache
		SET processed = TRUE, processed_at = ?, outcome = ?, error_message = ?
		WHERE url = ? AND processed = FALSE`,
		time.Now(), outcome, errorMessage, url)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", url, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark processed %s: entry missing or already processed", url)
	}
	return nil
}

// Stats summarizes frontier state for a city.
func (f *Frontier) Stats(ctx context.Context, city string) (*models.FrontierStats, error) {
	var st models.FrontierStats
	err := f.db.Get(ctx, &st, `
		SELECT
			COUNT(*) AS total,
			COALESCE(MAX(discovered_at_page), 0) AS last_page,
			COALESCE(SUM(CASE WHEN processed THEN 1 ELSE 0 END), 0) AS processed,
			COALESCE(SUM(CASE WHEN processed THEN 0 ELSE 1 END), 0) AS unprocessed,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS successful,
			COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0) AS failed
		FROM property_urls_cache
		WHERE source_city = ?`,
		models.OutcomeSuccess, models.OutcomeFailure, city)
	if err != nil {
		return nil, fmt.Errorf("frontier stats for %s: %w", city, err)
	}
	return &st, nil
}

// List pages through a city's entries for operational inspection.
func (f *Frontier) List(ctx context.Context, city string, page, perPage int) ([]models.FrontierEntry, error) {
	if page < 1 {
		page = 1
	}
	var out []models.FrontierEntry
	err := f.db.Select(ctx, &out, `
		SELECT * FROM property_urls_cache
		WHERE source_city = ?
		ORDER BY id ASC
		LIMIT ? OFFSET ?`, city, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("list frontier for %s: %w", city, err)
	}
	return out, nil
}

// Clear removes all entries for a city and returns how many went.
func (f *Frontier) Clear(ctx context.Context, city string) (int64, error) {
	res, err := f.db.Exec(ctx, "DELETE FROM property_urls_cache WHERE source_city = ?", city)
	if err != nil {
		return 0, fmt.Errorf("clear frontier for %s: %w", city, err)
	}
	return res.RowsAffected()
}

// ClearAll removes every entry across all cities.
func (f *Frontier) ClearAll(ctx context.Context) (int64, error) {
	res, err := f.db.Exec(ctx, "DELETE FROM property_urls_cache")
	if err != nil {
		return 0, fmt.Errorf("clear frontier: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
