package models

import "time"

// Frontier entry outcomes.
const (
	OutcomeUnset   = ""
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// FrontierEntry is one discovered property URL in the persistent
// crawl frontier. The url column is globally unique; an entry moves
// from unprocessed to processed exactly once and is never reset by
// the pipeline itself.
type FrontierEntry struct {
	ID               int64      `db:"id" json:"id"`
	URL              string     `db:"url" json:"url"`
	SourceCity       string     `db:"source_city" json:"source_city"`
	DiscoveredAtPage int        `db:"discovered_at_page" json:"discovered_at_page"`
	DiscoveredAt     time.Time  `db:"discovered_at" json:"discovered_at"`
	Processed        bool       `db:"processed" json:"processed"`
	ProcessedAt      *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	Outcome          string     `db:"outcome" json:"outcome"`
	ErrorMessage     string     `db:"error_message" json:"error_message,omitempty"`
}

func (FrontierEntry) TableName() string { return "property_urls_cache" }

// FrontierStats summarizes frontier state for one city.
type FrontierStats struct {
	Total       int `db:"total" json:"total"`
	LastPage    int `db:"last_page" json:"last_page"`
	Processed   int `db:"processed" json:"processed"`
	Unprocessed int `db:"unprocessed" json:"unprocessed"`
	Successful  int `db:"successful" json:"successful"`
	Failed      int `db:"failed" json:"failed"`
}
