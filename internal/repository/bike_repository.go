package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/velodepot/bikeshop/internal/model"
)

// BikeRepo provides persistence for bikes and implements the store
// interfaces of the inventory, dashboard and signal services.
type BikeRepo struct{ DB *sql.DB }

// NewBikeRepo returns a BikeRepo bound to the given database.
func NewBikeRepo(db *sql.DB) *BikeRepo { return &BikeRepo{DB: db} }

const bikeColumns = `id, frame_number, brand_id, model_id, year, color, size,
	purchase_cents, selling_cents, status, notes, sold_at, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanBike(row rowScanner, b *model.Bike) error {
	var (
		year           sql.NullInt64
		color, size    sql.NullString
		notes          sql.NullString
		purchase, sell sql.NullInt64
		soldAt         sql.NullTime
	)
	err := row.Scan(&b.ID, &b.FrameNumber, &b.BrandID, &b.ModelID, &year, &color, &size,
		&purchase, &sell, &b.Status, &notes, &soldAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return err
	}
	if year.Valid {
		y := int(year.Int64)
		b.Year = &y
	}
	if color.Valid {
		v := color.String
		b.Color = &v
	}
	if size.Valid {
		v := size.String
		b.Size = &v
	}
	if purchase.Valid {
		v := purchase.Int64
		b.PurchaseCents = &v
	}
	if sell.Valid {
		v := sell.Int64
		b.SellingCents = &v
	}
	if notes.Valid {
		v := notes.String
		b.Notes = &v
	}
	if soldAt.Valid {
		t := soldAt.Time
		b.SoldAt = &t
	}
	return nil
}

// GetByID returns one bike, or (nil, nil) when it does not exist.
func (r *BikeRepo) GetByID(ctx context.Context, id uint64) (*model.Bike, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = ?`, id)
	var b model.Bike
	if err := scanBike(row, &b); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// GetDetail returns one bike joined with its brand and model names,
// or (nil, nil) when it does not exist.
func (r *BikeRepo) GetDetail(ctx context.Context, id uint64) (*model.BikeWithNames, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT b.id, b.frame_number, b.brand_id, b.model_id, b.year, b.color, b.size,
		        b.purchase_cents, b.selling_cents, b.status, b.notes, b.sold_at,
		        b.created_at, b.updated_at, br.name, mo.name
		 FROM bikes b
		 JOIN brands br ON br.id = b.brand_id
		 JOIN models mo ON mo.id = b.model_id
		 WHERE b.id = ?`, id)
	var (
		b              model.Bike
		year           sql.NullInt64
		color, size    sql.NullString
		notes          sql.NullString
		purchase, sell sql.NullInt64
		soldAt         sql.NullTime
		brand, mdl     string
	)
	err := row.Scan(&b.ID, &b.FrameNumber, &b.BrandID, &b.ModelID, &year, &color, &size,
		&purchase, &sell, &b.Status, &notes, &soldAt, &b.CreatedAt, &b.UpdatedAt, &brand, &mdl)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		b.Year = &y
	}
	if color.Valid {
		v := color.String
		b.Color = &v
	}
	if size.Valid {
		v := size.String
		b.Size = &v
	}
	if purchase.Valid {
		v := purchase.Int64
		b.PurchaseCents = &v
	}
	if sell.Valid {
		v := sell.Int64
		b.SellingCents = &v
	}
	if notes.Valid {
		v := notes.String
		b.Notes = &v
	}
	if soldAt.Valid {
		t := soldAt.Time
		b.SoldAt = &t
	}
	return &model.BikeWithNames{Bike: b, BrandName: brand, ModelName: mdl}, nil
}

// FrameNumberExists reports whether a bike with this frame number is
// already registered.
func (r *BikeRepo) FrameNumberExists(ctx context.Context, frameNumber string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM bikes WHERE frame_number = ?)`, frameNumber).Scan(&exists)
	return exists, err
}

// List returns a filtered, paginated page of bikes with catalog names
// plus the total match count.  Newest first.
func (r *BikeRepo) List(ctx context.Context, f model.BikeFilter) ([]model.BikeWithNames, int, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		where = append(where, "b.frame_number LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bikes b`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	query := `SELECT b.id, b.frame_number, b.brand_id, b.model_id, b.year, b.color, b.size,
	                 b.purchase_cents, b.selling_cents, b.status, b.notes, b.sold_at,
	                 b.created_at, b.updated_at, br.name, mo.name
	          FROM bikes b
	          JOIN brands br ON br.id = b.brand_id
	          JOIN models mo ON mo.id = b.model_id` + clause +
		` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bikes, err := collectBikesWithNames(rows)
	if err != nil {
		return nil, 0, err
	}
	return bikes, total, nil
}

// ListAllWithNames returns the entire inventory with catalog names,
// newest first.  Used by CSV export and the signal checks.
func (r *BikeRepo) ListAllWithNames(ctx context.Context) ([]model.BikeWithNames, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.frame_number, b.brand_id, b.model_id, b.year, b.color, b.size,
		        b.purchase_cents, b.selling_cents, b.status, b.notes, b.sold_at,
		        b.created_at, b.updated_at, br.name, mo.name
		 FROM bikes b
		 JOIN brands br ON br.id = b.brand_id
		 JOIN models mo ON mo.id = b.model_id
		 ORDER BY b.created_at DESC, b.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBikesWithNames(rows)
}

// RecentSales returns the most recently sold bikes, newest sale first.
func (r *BikeRepo) RecentSales(ctx context.Context, limit int) ([]model.BikeWithNames, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT b.id, b.frame_number, b.brand_id, b.model_id, b.year, b.color, b.size,
		        b.purchase_cents, b.selling_cents, b.status, b.notes, b.sold_at,
		        b.created_at, b.updated_at, br.name, mo.name
		 FROM bikes b
		 JOIN brands br ON br.id = b.brand_id
		 JOIN models mo ON mo.id = b.model_id
		 WHERE b.status = ?
		 ORDER BY b.sold_at DESC
		 LIMIT ?`, model.BikeStatusSold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBikesWithNames(rows)
}

// StatusCounts returns the number of bikes per status.
func (r *BikeRepo) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM bikes GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CreateWithMovement inserts the bike and its creation movement in one
// transaction and populates the generated ID and timestamps.
func (r *BikeRepo) CreateWithMovement(ctx context.Context, b *model.Bike, mv *model.InventoryMovement) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO bikes (frame_number, brand_id, model_id, year, color, size,
		                    purchase_cents, selling_cents, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.FrameNumber, b.BrandID, b.ModelID, b.Year, b.Color, b.Size,
		b.PurchaseCents, b.SellingCents, b.Status, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	mv.BikeID = b.ID
	if err := insertMovementTx(ctx, tx, mv); err != nil {
		return err
	}

	// Query back to pick up the database-generated timestamps.
	row := tx.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = ?`, b.ID)
	if err := scanBike(row, b); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateWithMovement applies the patch, appends mv when non-nil and
// returns the updated row, all in one transaction.
func (r *BikeRepo) UpdateWithMovement(ctx context.Context, id uint64, patch model.BikePatch, mv *model.InventoryMovement) (*model.Bike, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if patch.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *patch.Color)
	}
	if patch.Size != nil {
		sets = append(sets, "size = ?")
		args = append(args, *patch.Size)
	}
	if patch.PurchaseCents != nil {
		sets = append(sets, "purchase_cents = ?")
		args = append(args, *patch.PurchaseCents)
	}
	if patch.SellingCents != nil {
		sets = append(sets, "selling_cents = ?")
		args = append(args, *patch.SellingCents)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.SoldAt != nil {
		sets = append(sets, "sold_at = ?")
		args = append(args, *patch.SoldAt)
	}
	if len(sets) > 0 {
		query := "UPDATE bikes SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		args = append(args, id)
		if patch.FromStatus != nil {
			// Re-check the guard status inside the transaction: a
			// concurrent transition makes this match zero rows.
			query += " AND status = ?"
			args = append(args, *patch.FromStatus)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		if patch.FromStatus != nil {
			// The guard always travels with a real status change, so a
			// matched row is always a changed row.
			n, err := res.RowsAffected()
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, model.ErrBikeStatusChanged
			}
		}
	}

	if mv != nil {
		if err := insertMovementTx(ctx, tx, mv); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRowContext(ctx, `SELECT `+bikeColumns+` FROM bikes WHERE id = ?`, id)
	var b model.Bike
	if err := scanBike(row, &b); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &b, nil
}

func collectBikesWithNames(rows *sql.Rows) ([]model.BikeWithNames, error) {
	bikes := make([]model.BikeWithNames, 0)
	for rows.Next() {
		var (
			b              model.Bike
			year           sql.NullInt64
			color, size    sql.NullString
			notes          sql.NullString
			purchase, sell sql.NullInt64
			soldAt         sql.NullTime
			brand, mdl     string
		)
		err := rows.Scan(&b.ID, &b.FrameNumber, &b.BrandID, &b.ModelID, &year, &color, &size,
			&purchase, &sell, &b.Status, &notes, &soldAt, &b.CreatedAt, &b.UpdatedAt, &brand, &mdl)
		if err != nil {
			return nil, err
		}
		if year.Valid {
			y := int(year.Int64)
			b.Year = &y
		}
		if color.Valid {
			v := color.String
			b.Color = &v
		}
		if size.Valid {
			v := size.String
			b.Size = &v
		}
		if purchase.Valid {
			v := purchase.Int64
			b.PurchaseCents = &v
		}
		if sell.Valid {
			v := sell.Int64
			b.SellingCents = &v
		}
		if notes.Valid {
			v := notes.String
			b.Notes = &v
		}
		if soldAt.Valid {
			t := soldAt.Time
			b.SoldAt = &t
		}
		bikes = append(bikes, model.BikeWithNames{Bike: b, BrandName: brand, ModelName: mdl})
	}
	return bikes, rows.Err()
}
