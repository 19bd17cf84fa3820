package repository

import (
	"context"
	"database/sql"

	"github.com/velodepot/bikeshop/internal/model"
)

// MovementRepo reads the append-only inventory movement audit trail.
// Inserts only ever happen inside the bike and work order repository
// transactions, via insertMovementTx.
type MovementRepo struct{ DB *sql.DB }

// NewMovementRepo returns a MovementRepo bound to the given database.
func NewMovementRepo(db *sql.DB) *MovementRepo { return &MovementRepo{DB: db} }

// insertMovementTx appends one audit record within the caller's
// transaction and fills in the generated ID.
func insertMovementTx(ctx context.Context, tx *sql.Tx, mv *model.InventoryMovement) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_movements (bike_id, from_status, to_status, reason, performed_by_id)
		 VALUES (?, ?, ?, ?, ?)`,
		mv.BikeID, mv.FromStatus, mv.ToStatus, mv.Reason, mv.PerformedByID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	mv.ID = uint64(id)
	return nil
}

// ListByBike returns the full movement history of one bike, oldest
// first, matching the lineage order of the audit trail.
func (r *MovementRepo) ListByBike(ctx context.Context, bikeID uint64) ([]model.InventoryMovement, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, bike_id, from_status, to_status, reason, performed_by_id, created_at
		 FROM inventory_movements
		 WHERE bike_id = ?
		 ORDER BY created_at ASC, id ASC`, bikeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]model.InventoryMovement, 0)
	for rows.Next() {
		var (
			mv   model.InventoryMovement
			from sql.NullString
		)
		if err := rows.Scan(&mv.ID, &mv.BikeID, &from, &mv.ToStatus, &mv.Reason, &mv.PerformedByID, &mv.CreatedAt); err != nil {
			return nil, err
		}
		if from.Valid {
			f := from.String
			mv.FromStatus = &f
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}
