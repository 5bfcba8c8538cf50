package models

import "time"

// Child record-sets owned by a Property via property_id. Each set is
// fully replaced on every successful crawl of its parent; ids are
// assigned by the repository inside the insert transaction.

// PropertyImage is one gallery image of a listing.
type PropertyImage struct {
	ID         int64  `db:"id" json:"id"`
	PropertyID string `db:"property_id" json:"property_id"`
	ImageURL   string `db:"image_url" json:"image_url"`
	SortOrder  int    `db:"sort_order" json:"sort_order"`
}

func (PropertyImage) TableName() string { return "property_images" }

// Transaction is one historical sale recorded near the listing.
type Transaction struct {
	ID         int64      `db:"id" json:"id"`
	PropertyID string     `db:"property_id" json:"property_id"`
	Date       *time.Time `db:"date" json:"date,omitempty"`
	Address    string     `db:"address" json:"address,omitempty"`
	Rooms      *float64   `db:"rooms" json:"rooms,omitempty"`
	Floor      *int       `db:"floor" json:"floor,omitempty"`
	Size       *float64   `db:"size" json:"size,omitempty"`
	Price      *int       `db:"price" json:"price,omitempty"`
}

func (Transaction) TableName() string { return "transaction_history" }

// School is an educational institution near the listing.
type School struct {
	ID             int64    `db:"id" json:"id"`
	PropertyID     string   `db:"property_id" json:"property_id"`
	Name           string   `db:"name" json:"name"`
	SchoolType     string   `db:"school_type" json:"school_type,omitempty"`
	Grades         string   `db:"grades" json:"grades,omitempty"`
	DistanceMeters *float64 `db:"distance_meters" json:"distance_meters,omitempty"`
}

func (School) TableName() string { return "nearby_schools" }

// Ratings holds the neighborhood rating card. Strictly zero-or-one
// rows per property, written through an atomic upsert.
type Ratings struct {
	ID              int64    `db:"id" json:"id"`
	PropertyID      string   `db:"property_id" json:"property_id"`
	OverallRating   *float64 `db:"overall_rating" json:"overall_rating,omitempty"`
	SchoolsRating   *float64 `db:"schools_rating" json:"schools_rating,omitempty"`
	TransportRating *float64 `db:"transport_rating" json:"transport_rating,omitempty"`
	ParksRating     *float64 `db:"parks_rating" json:"parks_rating,omitempty"`
	QuietRating     *float64 `db:"quiet_rating" json:"quiet_rating,omitempty"`
	SafetyRating    *float64 `db:"safety_rating" json:"safety_rating,omitempty"`
}

func (Ratings) TableName() string { return "neighborhood_ratings" }

// PriceComparison is the average asking price for a given room count
// in the listing's neighborhood.
type PriceComparison struct {
	ID           int64    `db:"id" json:"id"`
	PropertyID   string   `db:"property_id" json:"property_id"`
	Rooms        float64  `db:"rooms" json:"rooms"`
	AveragePrice *int     `db:"average_price" json:"average_price,omitempty"`
	ListingCount *int     `db:"listing_count" json:"listing_count,omitempty"`
}

func (PriceComparison) TableName() string { return "price_comparisons" }

// ConstructionProject is a planned or active building project near
// the listing.
type ConstructionProject struct {
	ID             int64    `db:"id" json:"id"`
	PropertyID     string   `db:"property_id" json:"property_id"`
	Name           string   `db:"name" json:"name"`
	Status         string   `db:"status" json:"status,omitempty"`
	Address        string   `db:"address" json:"address,omitempty"`
	DistanceMeters *float64 `db:"distance_meters" json:"distance_meters,omitempty"`
}

func (ConstructionProject) TableName() string { return "new_construction_projects" }
