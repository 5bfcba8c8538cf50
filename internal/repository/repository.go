package repository

import (
	"context"
	"fmt"

	"madlan-crawler/internal/storage"
)

// Repositories bundles the typed repositories over one Store. Bind it
// to the DB for standalone reads, or to the Store inside a Transact
// callback so every write shares the transaction.
type Repositories struct {
	Properties   *PropertyRepo
	Images       *ImageRepo
	Transactions *TransactionRepo
	Schools      *SchoolRepo
	Ratings      *RatingsRepo
	Comparisons  *PriceComparisonRepo
	Construction *ConstructionRepo
}

// New binds a full repository set to s.
func New(s storage.Store) *Repositories {
	return &Repositories{
		Properties:   &PropertyRepo{s: s},
		Images:       &ImageRepo{s: s},
		Transactions: &TransactionRepo{s: s},
		Schools:      &SchoolRepo{s: s},
		Ratings:      &RatingsRepo{s: s},
		Comparisons:  &PriceComparisonRepo{s: s},
		Construction: &ConstructionRepo{s: s},
	}
}

// nextID computes the next manual identifier for a child table.
// Neither backend is given auto-increment columns, so id assignment
// must happen inside the same transaction as the insert that uses it;
// callers batch-inserting read it once and increment locally.
func nextID(ctx context.Context, s storage.Store, table string) (int64, error) {
	var id int64
	if err := s.Get(ctx, &id, "SELECT COALESCE(MAX(id), 0) + 1 FROM "+table); err != nil {
		return 0, fmt.Errorf("next id for %s: %w", table, err)
	}
	return id, nil
}

func deleteByPropertyID(ctx context.Context, s storage.Store, table, propertyID string) (int64, error) {
	res, err := s.Exec(ctx, "DELETE FROM "+table+" WHERE property_id = ?", propertyID)
	if err != nil {
		return 0, fmt.Errorf("delete %s for property %s: %w", table, propertyID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func countByPropertyID(ctx context.Context, s storage.Store, table, propertyID string) (int, error) {
	var n int
	if err := s.Get(ctx, &n, "SELECT COUNT(*) FROM "+table+" WHERE property_id = ?", propertyID); err != nil {
		return 0, fmt.Errorf("count %s for property %s: %w", table, propertyID, err)
	}
	return n, nil
}
