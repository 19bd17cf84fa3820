package repository

import (
	"context"
	"database/sql"

	"github.com/velodepot/bikeshop/internal/model"
)

// CatalogRepo reads the brand and model catalog.  The catalog is
// seeded data; the API only lists it.
type CatalogRepo struct{ DB *sql.DB }

// NewCatalogRepo returns a CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

// ListBrands returns all brands in alphabetical order.
func (r *CatalogRepo) ListBrands(ctx context.Context) ([]model.Brand, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, created_at FROM brands ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brands := make([]model.Brand, 0)
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// ListModels returns bike models with their brand name, optionally
// restricted to one brand, in alphabetical order.
func (r *CatalogRepo) ListModels(ctx context.Context, brandID *uint64) ([]model.BikeModel, error) {
	query := `SELECT m.id, m.brand_id, m.name, b.name, m.created_at
	          FROM models m
	          JOIN brands b ON b.id = m.brand_id`
	args := make([]any, 0, 1)
	if brandID != nil {
		query += ` WHERE m.brand_id = ?`
		args = append(args, *brandID)
	}
	query += ` ORDER BY b.name ASC, m.name ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	models := make([]model.BikeModel, 0)
	for rows.Next() {
		var m model.BikeModel
		if err := rows.Scan(&m.ID, &m.BrandID, &m.Name, &m.BrandName, &m.CreatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}
