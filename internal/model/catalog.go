package model

import "time"

// Brand is a bicycle manufacturer, e.g. Gazelle or Trek.  Brand names
// are unique.
type Brand struct {
	ID        uint64    // brands.id
	Name      string    // brands.name
	CreatedAt time.Time // brands.created_at
}

// BikeModel is one model of a brand, e.g. "Chamonix".  The (name,
// brand) pair is unique; every model belongs to exactly one brand.
type BikeModel struct {
	ID        uint64    // models.id
	BrandID   uint64    // models.brand_id
	Name      string    // models.name
	BrandName string    // brands.name, joined for listings
	CreatedAt time.Time // models.created_at
}
