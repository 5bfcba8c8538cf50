package models

import "time"

// Property is one madlan.co.il listing. The ID is the site-assigned
// listing id taken from the detail URL, so re-crawling the same page
// always lands on the same row.
type Property struct {
	ID           string   `db:"id" json:"id"`
	URL          string   `db:"url" json:"url"`
	City         string   `db:"city" json:"city"`
	Price        *int     `db:"price" json:"price,omitempty"`
	Rooms        *float64 `db:"rooms" json:"rooms,omitempty"`
	Size         *float64 `db:"size" json:"size,omitempty"`
	Floor        *int     `db:"floor" json:"floor,omitempty"`
	TotalFloors  *int     `db:"total_floors" json:"total_floors,omitempty"`
	Address      string   `db:"address" json:"address,omitempty"`
	Neighborhood string   `db:"neighborhood" json:"neighborhood,omitempty"`
	PropertyType string   `db:"property_type" json:"property_type,omitempty"`
	Description  string   `db:"description" json:"description,omitempty"`

	// Amenity flags
	HasElevator        bool `db:"has_elevator" json:"has_elevator"`
	HasParking         bool `db:"has_parking" json:"has_parking"`
	HasBalcony         bool `db:"has_balcony" json:"has_balcony"`
	HasSafeRoom        bool `db:"has_safe_room" json:"has_safe_room"`
	HasAirConditioning bool `db:"has_air_conditioning" json:"has_air_conditioning"`
	HasBars            bool `db:"has_bars" json:"has_bars"`
	HasStorageRoom     bool `db:"has_storage_room" json:"has_storage_room"`
	IsAccessible       bool `db:"is_accessible" json:"is_accessible"`
	IsRenovated        bool `db:"is_renovated" json:"is_renovated"`

	LastSeenAt time.Time `db:"last_seen_at" json:"last_seen_at"`
}

// TableName for the properties table.
func (Property) TableName() string {
	return "properties"
}
