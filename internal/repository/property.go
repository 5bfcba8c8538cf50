package repository

import (
	"context"
	"fmt"
	"time"

	"madlan-crawler/internal/models"
	"madlan-crawler/internal/storage"
)

// PropertyRepo reads and writes the properties table. Writes are
// upserts keyed by the site-assigned listing id.
type PropertyRepo struct {
	s storage.Store
}

// Upsert inserts the property or overwrites the existing row with the
// same id. LastSeenAt is stamped if unset.
func (r *PropertyRepo) Upsert(ctx context.Context, p *models.Property) error {
	if p.LastSeenAt.IsZero() {
		p.LastSeenAt = time.Now()
	}

	var exists int
	err := r.s.Get(ctx, &exists, "SELECT 1 FROM properties WHERE id = ?", p.ID)
	if err != nil && !storage.IsNoRows(err) {
		return fmt.Errorf("check property %s: %w", p.ID, err)
	}

	if storage.IsNoRows(err) {
		_, err = r.s.Exec(ctx, `
			INSERT INTO properties (
				id, url, city, price, rooms, size, floor, total_floors,
				address, neighborhood, property_type, description,
				has_elevator, has_parking, has_balcony, has_safe_room,
				has_air_conditioning, has_bars, has_storage_room,
				is_accessible, is_renovated, last_seen_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.URL, p.City, p.Price, p.Rooms, p.Size, p.Floor, p.TotalFloors,
			p.Address, p.Neighborhood, p.PropertyType, p.Description,
			p.HasElevator, p.HasParking, p.HasBalcony, p.HasSafeRoom,
			p.HasAirConditioning, p.HasBars, p.HasStorageRoom,
			p.IsAccessible, p.IsRenovated, p.LastSeenAt)
		if err != nil {
			return fmt.Errorf("insert property %s: %w", p.ID, err)
		}
		return nil
	}

	_, err = r.s.Exec(ctx, `
		UPDATE properties SET
			url = ?, city = ?, price = ?, rooms = ?, size = ?, floor = ?,
			total_floors = ?, address = ?, neighborhood = ?, property_type = ?,
			description = ?, has_elevator = ?, has_parking = ?, has_balcony = ?,
			has_safe_room = ?, has_air_conditioning = ?, has_bars = ?,
			has_storage_room = ?, is_accessible = ?, is_renovated = ?,
			last_seen_at = ?
		WHERE id = ?`,
		p.URL, p.City, p.Price, p.Rooms, p.Size, p.Floor,
		p.TotalFloors, p.Address, p.Neighborhood, p.PropertyType,
		p.Description, p.HasElevator, p.HasParking, p.HasBalcony,
		p.HasSafeRoom, p.HasAirConditioning, p.HasBars,
		p.HasStorageRoom, p.IsAccessible, p.IsRenovated,
		p.LastSeenAt, p.ID)
	if err != nil {
		return fmt.Errorf("update property %s: %w", p.ID, err)
	}
	return nil
}

// FindByID returns the property or (nil, nil) when absent.
func (r *PropertyRepo) FindByID(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := r.s.Get(ctx, &p, "SELECT * FROM properties WHERE id = ?", id)
	if storage.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find property %s: %w", id, err)
	}
	return &p, nil
}

// FindByCity returns a city's properties, most recently seen first.
func (r *PropertyRepo) FindByCity(ctx context.Context, city string) ([]models.Property, error) {
	var out []models.Property
	err := r.s.Select(ctx, &out,
		"SELECT * FROM properties WHERE city = ? ORDER BY last_seen_at DESC", city)
	if err != nil {
		return nil, fmt.Errorf("find properties for city %s: %w", city, err)
	}
	return out, nil
}

// Count returns the total number of stored properties.
func (r *PropertyRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.s.Get(ctx, &n, "SELECT COUNT(*) FROM properties"); err != nil {
		return 0, fmt.Errorf("count properties: %w", err)
	}
	return n, nil
}

// Delete removes a property row. Children are not touched here;
// maintenance operations remove them in the same transaction.
func (r *PropertyRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.Exec(ctx, "DELETE FROM properties WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete property %s: %w", id, err)
	}
	return nil
}
