// Package cleanup holds explicit maintenance operations. Nothing in
// the steady-state pipeline destroys property rows; only these
// operations do, and each one runs as a single transaction.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"madlan-crawler/internal/storage"
)

// Service performs storage maintenance.
type Service struct {
	db storage.DB
}

// NewService creates a cleanup service over db.
func NewService(db storage.DB) *Service {
	return &Service{db: db}
}

// DedupeResult reports one deduplication run.
type DedupeResult struct {
	DuplicateURLs     int       `json:"duplicate_urls"`
	DeletedProperties []string  `json:"deleted_properties"`
	ExecutedAt        time.Time `json:"executed_at"`
}

// childTables are the per-property record sets removed alongside a
// property row.
var childTables = []string{
	"property_images",
	"transaction_history",
	"nearby_schools",
	"neighborhood_ratings",
	"price_comparisons",
	"new_construction_projects",
}

// Dedupe removes duplicate property rows sharing a URL, keeping the
// most recently seen row per URL. Each victim's children go in the
// same transaction so no orphaned child rows survive.
func (s *Service) Dedupe(ctx context.Context) (*DedupeResult, error) {
	result := &DedupeResult{ExecutedAt: time.Now()}

	type dupe struct {
		ID  string `db:"id"`
		URL string `db:"url"`
	}

	// Rows whose (url, last_seen_at) is not the newest for that url.
	var victims []dupe
	err := s.db.Select(ctx, &victims, `
		SELECT p.id, p.url FROM properties p
		WHERE EXISTS (
			SELECT 1 FROM properties q
			WHERE q.url = p.url AND q.id != p.id
			AND (q.last_seen_at > p.last_seen_at
				OR (q.last_seen_at = p.last_seen_at AND q.id > p.id))
		)`)
	if err != nil {
		return nil, fmt.Errorf("find duplicate properties: %w", err)
	}

	if len(victims) == 0 {
		return result, nil
	}

	urls := make(map[string]bool)
	err = s.db.Transact(ctx, func(st storage.Store) error {
		for _, v := range victims {
			for _, table := range childTables {
				if _, err := st.Exec(ctx, "DELETE FROM "+table+" WHERE property_id = ?", v.ID); err != nil {
					return fmt.Errorf("delete %s for duplicate %s: %w", table, v.ID, err)
				}
			}
			if _, err := st.Exec(ctx, "DELETE FROM properties WHERE id = ?", v.ID); err != nil {
				return fmt.Errorf("delete duplicate property %s: %w", v.ID, err)
			}
			urls[v.URL] = true
			result.DeletedProperties = append(result.DeletedProperties, v.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.DuplicateURLs = len(urls)
	log.Info().Int("duplicate_urls", result.DuplicateURLs).
		Int("deleted", len(result.DeletedProperties)).Msg("deduplication completed")
	return result, nil
}
