package repository

import (
	"context"
	"fmt"

	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

// The child repositories below share a contract: InsertMany assigns
// ids from a single MAX(id)+1 read and must therefore run inside a
// transaction when callers need batch atomicity; FindByPropertyID
// orderings are part of the persisted-schema contract (distance
// ascending with NULLs last for schools and construction projects,
// date descending for transactions, rooms ascending for comparisons).

// ImageRepo persists property gallery images.
type ImageRepo struct {
	s storage.Store
}

func (r *ImageRepo) Insert(ctx context.Context, img *models.PropertyImage) error {
	id, err := nextID(ctx, r.s, "property_images")
	if err != nil {
		return err
	}
	img.ID = id
	_, err = r.s.Exec(ctx,
		"INSERT INTO property_images (id, property_id, image_url, sort_order) VALUES (?, ?, ?, ?)",
		img.ID, img.PropertyID, img.ImageURL, img.SortOrder)
	if err != nil {
		return fmt.Errorf("insert image for %s: %w", img.PropertyID, err)
	}
	return nil
}

func (r *ImageRepo) InsertMany(ctx context.Context, imgs []models.PropertyImage) error {
	if len(imgs) == 0 {
		return nil
	}
	base, err := nextID(ctx, r.s, "property_images")
	if err != nil {
		return err
	}
	for i := range imgs {
		imgs[i].ID = base + int64(i)
		_, err := r.s.Exec(ctx,
			"INSERT INTO property_images (id, property_id, image_url, sort_order) VALUES (?, ?, ?, ?)",
			imgs[i].ID, imgs[i].PropertyID, imgs[i].ImageURL, imgs[i].SortOrder)
		if err != nil {
			return fmt.Errorf("insert image batch for %s: %w", imgs[i].PropertyID, err)
		}
	}
	return nil
}

func (r *ImageRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]models.PropertyImage, error) {
	var out []models.PropertyImage
	err := r.s.Select(ctx, &out,
		"SELECT * FROM property_images WHERE property_id = ? ORDER BY sort_order ASC, id ASC", propertyID)
	if err != nil {
		return nil, fmt.Errorf("find images for %s: %w", propertyID, err)
	}
	return out, nil
}

func (r *ImageRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "property_images", propertyID)
}

func (r *ImageRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "property_images", propertyID)
}

// TransactionRepo persists nearby historical sales.
type TransactionRepo struct {
	s storage.Store
}

func (r *TransactionRepo) Insert(ctx context.Context, t *models.Transaction) error {
	id, err := nextID(ctx, r.s, "transaction_history")
	if err != nil {
		return err
	}
	t.ID = id
	_, err = r.s.Exec(ctx, `
		INSERT INTO transaction_history (id, property_id, date, address, rooms, floor, size, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PropertyID, t.Date, t.Address, t.Rooms, t.Floor, t.Size, t.Price)
	if err != nil {
		return fmt.Errorf("insert transaction for %s: %w", t.PropertyID, err)
	}
	return nil
}

func (r *TransactionRepo) InsertMany(ctx context.Context, ts []models.Transaction) error {
	if len(ts) == 0 {
		return nil
	}
	base, err := nextID(ctx, r.s, "transaction_history")
	if err != nil {
		return err
	}
	for i := range ts {
		ts[i].ID = base + int64(i)
		_, err := r.s.Exec(ctx, `
			INSERT INTO transaction_history (id, property_id, date, address, rooms, floor, size, price)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ts[i].ID, ts[i].PropertyID, ts[i].Date, ts[i].Address, ts[i].Rooms, ts[i].Floor, ts[i].Size, ts[i].Price)
		if err != nil {
			return fmt.Errorf("insert transaction batch for %s: %w", ts[i].PropertyID, err)
		}
	}
	return nil
}

func (r *TransactionRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := r.s.Select(ctx, &out, `
		SELECT * FROM transaction_history WHERE property_id = ?
		ORDER BY CASE WHEN date IS NULL THEN 1 ELSE 0 END, date DESC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("find transactions for %s: %w", propertyID, err)
	}
	return out, nil
}

func (r *TransactionRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "transaction_history", propertyID)
}

func (r *TransactionRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "transaction_history", propertyID)
}

// SchoolRepo persists schools near a property.
type SchoolRepo struct {
	s storage.Store
}

func (r *SchoolRepo) Insert(ctx context.Context, sc *models.School) error {
	id, err := nextID(ctx, r.s, "nearby_schools")
	if err != nil {
		return err
	}
	sc.ID = id
	_, err = r.s.Exec(ctx, `
		INSERT INTO nearby_schools (id, property_id, name, school_type, grades, distance_meters)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.PropertyID, sc.Name, sc.SchoolType, sc.Grades, sc.DistanceMeters)
	if err != nil {
		return fmt.Errorf("insert school for %s: %w", sc.PropertyID, err)
	}
	return nil
}

func (r *SchoolRepo) InsertMany(ctx context.Context, scs []models.School) error {
	if len(scs) == 0 {
		return nil
	}
	base, err := nextID(ctx, r.s, "nearby_schools")
	if err != nil {
		return err
	}
	for i := range scs {
		scs[i].ID = base + int64(i)
		_, err := r.s.Exec(ctx, `
			INSERT INTO nearby_schools (id, property_id, name, school_type, grades, distance_meters)
			VALUES (?, ?, ?, ?, ?, ?)`,
			scs[i].ID, scs[i].PropertyID, scs[i].Name, scs[i].SchoolType, scs[i].Grades, scs[i].DistanceMeters)
		if err != nil {
			return fmt.Errorf("insert school batch for %s: %w", scs[i].PropertyID, err)
		}
	}
	return nil
}

func (r *SchoolRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]models.School, error) {
	var out []models.School
	err := r.s.Select(ctx, &out, `
		SELECT * FROM nearby_schools WHERE property_id = ?
		ORDER BY CASE WHEN distance_meters IS NULL THEN 1 ELSE 0 END, distance_meters ASC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("find schools for %s: %w", propertyID, err)
	}
	return out, nil
}

func (r *SchoolRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "nearby_schools", propertyID)
}

func (r *SchoolRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "nearby_schools", propertyID)
}

// RatingsRepo persists the zero-or-one neighborhood rating card.
type RatingsRepo struct {
	s storage.Store
}

func (r *RatingsRepo) Insert(ctx context.Context, rt *models.Ratings) error {
	id, err := nextID(ctx, r.s, "neighborhood_ratings")
	if err != nil {
		return err
	}
	rt.ID = id
	_, err = r.s.Exec(ctx, `
		INSERT INTO neighborhood_ratings
			(id, property_id, overall_rating, schools_rating, transport_rating, parks_rating, quiet_rating, safety_rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.ID, rt.PropertyID, rt.OverallRating, rt.SchoolsRating,
		rt.TransportRating, rt.ParksRating, rt.QuietRating, rt.SafetyRating)
	if err != nil {
		return fmt.Errorf("insert ratings for %s: %w", rt.PropertyID, err)
	}
	return nil
}

// Upsert replaces the property's rating row with rt. It must be bound
// to a transactional Store: the delete and insert commit together, so
// a concurrent reader sees the old row or the new one, never neither.
func (r *RatingsRepo) Upsert(ctx context.Context, rt *models.Ratings) error {
	if _, err := r.DeleteByPropertyID(ctx, rt.PropertyID); err != nil {
		return err
	}
	return r.Insert(ctx, rt)
}

func (r *RatingsRepo) FindByPropertyID(ctx context.Context, propertyID string) (*models.Ratings, error) {
	var rt models.Ratings
	err := r.s.Get(ctx, &rt,
		"SELECT * FROM neighborhood_ratings WHERE property_id = ?", propertyID)
	if storage.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find ratings for %s: %w", propertyID, err)
	}
	return &rt, nil
}

func (r *RatingsRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "neighborhood_ratings", propertyID)
}

func (r *RatingsRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "neighborhood_ratings", propertyID)
}

// PriceComparisonRepo persists per-room-count average asking prices.
type PriceComparisonRepo struct {
	s storage.Store
}

func (r *PriceComparisonRepo) Insert(ctx context.Context, pc *models.PriceComparison) error {
	id, err := nextID(ctx, r.s, "price_comparisons")
	if err != nil {
		return err
	}
	pc.ID = id
	_, err = r.s.Exec(ctx, `
		INSERT INTO price_comparisons (id, property_id, rooms, average_price, listing_count)
		VALUES (?, ?, ?, ?, ?)`,
		pc.ID, pc.PropertyID, pc.Rooms, pc.AveragePrice, pc.ListingCount)
	if err != nil {
		return fmt.Errorf("insert price comparison for %s: %w", pc.PropertyID, err)
	}
	return nil
}

func (r *PriceComparisonRepo) InsertMany(ctx context.Context, pcs []models.PriceComparison) error {
	if len(pcs) == 0 {
		return nil
	}
	base, err := nextID(ctx, r.s, "price_comparisons")
	if err != nil {
		return err
	}
	for i := range pcs {
		pcs[i].ID = base + int64(i)
		_, err := r.s.Exec(ctx, `
			INSERT INTO price_comparisons (id, property_id, rooms, average_price, listing_count)
			VALUES (?, ?, ?, ?, ?)`,
			pcs[i].ID, pcs[i].PropertyID, pcs[i].Rooms, pcs[i].AveragePrice, pcs[i].ListingCount)
		if err != nil {
			return fmt.Errorf("insert price comparison batch for %s: %w", pcs[i].PropertyID, err)
		}
	}
	return nil
}

func (r *PriceComparisonRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]models.PriceComparison, error) {
	var out []models.PriceComparison
	err := r.s.Select(ctx, &out,
		"SELECT * FROM price_comparisons WHERE property_id = ? ORDER BY rooms ASC", propertyID)
	if err != nil {
		return nil, fmt.Errorf("find price comparisons for %s: %w", propertyID, err)
	}
	return out, nil
}

func (r *PriceComparisonRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "price_comparisons", propertyID)
}

func (r *PriceComparisonRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "price_comparisons", propertyID)
}

// ConstructionRepo persists construction projects near a property.
type ConstructionRepo struct {
	s storage.Store
}

func (r *ConstructionRepo) Insert(ctx context.Context, cp *models.ConstructionProject) error {
	id, err := nextID(ctx, r.s, "new_construction_projects")
	if err != nil {
		return err
	}
	cp.ID = id
	_, err = r.s.Exec(ctx, `
		INSERT INTO new_construction_projects (id, property_id, name, status, address, distance_meters)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cp.ID, cp.PropertyID, cp.Name, cp.Status, cp.Address, cp.DistanceMeters)
	if err != nil {
		return fmt.Errorf("insert construction project for %s: %w", cp.PropertyID, err)
	}
	return nil
}

func (r *ConstructionRepo) InsertMany(ctx context.Context, cps []models.ConstructionProject) error {
	if len(cps) == 0 {
		return nil
	}
	base, err := nextID(ctx, r.s, "new_construction_projects")
	if err != nil {
		return err
	}
	for i := range cps {
		cps[i].ID = base + int64(i)
		_, err := r.s.Exec(ctx, `
			INSERT INTO new_construction_projects (id, property_id, name, status, address, distance_meters)
			VALUES (?, ?, ?, ?, ?, ?)`,
			cps[i].ID, cps[i].PropertyID, cps[i].Name, cps[i].Status, cps[i].Address, cps[i].DistanceMeters)
		if err != nil {
			return fmt.Errorf("insert construction batch for %s: %w", cps[i].PropertyID, err)
		}
	}
	return nil
}

func (r *ConstructionRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]models.ConstructionProject, error) {
	var out []models.ConstructionProject
	err := r.s.Select(ctx, &out, `
		SELECT * FROM new_construction_projects WHERE property_id = ?
		ORDER BY CASE WHEN distance_meters IS NULL THEN 1 ELSE 0 END, distance_meters ASC`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("find construction projects for %s: %w", propertyID, err)
	}
	return out, nil
}

func (r *ConstructionRepo) DeleteByPropertyID(ctx context.Context, propertyID string) (int64, error) {
	return deleteByPropertyID(ctx, r.s, "new_construction_projects", propertyID)
}

func (r *ConstructionRepo) CountByPropertyID(ctx context.Context, propertyID string) (int, error) {
	return countByPropertyID(ctx, r.s, "new_construction_projects", propertyID)
}
