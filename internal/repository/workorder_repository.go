package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/velodepot/bikeshop/internal/model"
)

// WorkOrderRepo provides persistence for service work orders and
// implements the store interfaces of the work order and dashboard
// services.
type WorkOrderRepo struct{ DB *sql.DB }

// NewWorkOrderRepo returns a WorkOrderRepo bound to the given database.
func NewWorkOrderRepo(db *sql.DB) *WorkOrderRepo { return &WorkOrderRepo{DB: db} }

const workOrderColumns = `id, bike_id, description, status, priority, created_by_id,
	assigned_to_id, estimated_cents, actual_cents, notes, completed_at, created_at, updated_at`

func scanWorkOrder(row rowScanner, wo *model.ServiceWorkOrder) error {
	var (
		assignedTo        sql.NullInt64
		estimated, actual sql.NullInt64
		notes             sql.NullString
		completedAt       sql.NullTime
	)
	err := row.Scan(&wo.ID, &wo.BikeID, &wo.Description, &wo.Status, &wo.Priority, &wo.CreatedByID,
		&assignedTo, &estimated, &actual, &notes, &completedAt, &wo.CreatedAt, &wo.UpdatedAt)
	if err != nil {
		return err
	}
	if assignedTo.Valid {
		v := uint64(assignedTo.Int64)
		wo.AssignedToID = &v
	}
	if estimated.Valid {
		v := estimated.Int64
		wo.EstimatedCents = &v
	}
	if actual.Valid {
		v := actual.Int64
		wo.ActualCents = &v
	}
	if notes.Valid {
		v := notes.String
		wo.Notes = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		wo.CompletedAt = &t
	}
	return nil
}

// GetByID returns one work order, or (nil, nil) when it does not exist.
func (r *WorkOrderRepo) GetByID(ctx context.Context, id uint64) (*model.ServiceWorkOrder, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+workOrderColumns+` FROM service_work_orders WHERE id = ?`, id)
	var wo model.ServiceWorkOrder
	if err := scanWorkOrder(row, &wo); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &wo, nil
}

const workOrderJoinedQuery = `SELECT w.id, w.bike_id, w.description, w.status, w.priority, w.created_by_id,
	       w.assigned_to_id, w.estimated_cents, w.actual_cents, w.notes, w.completed_at,
	       w.created_at, w.updated_at, b.frame_number, br.name, mo.name, cu.name, au.name
	FROM service_work_orders w
	JOIN bikes b ON b.id = w.bike_id
	JOIN brands br ON br.id = b.brand_id
	JOIN models mo ON mo.id = b.model_id
	JOIN users cu ON cu.id = w.created_by_id
	LEFT JOIN users au ON au.id = w.assigned_to_id`

func scanWorkOrderWithNames(row rowScanner) (*model.WorkOrderWithNames, error) {
	var (
		w                 model.WorkOrderWithNames
		assignedTo        sql.NullInt64
		estimated, actual sql.NullInt64
		notes             sql.NullString
		completedAt       sql.NullTime
		assignedName      sql.NullString
	)
	err := row.Scan(&w.ID, &w.BikeID, &w.Description, &w.Status, &w.Priority, &w.CreatedByID,
		&assignedTo, &estimated, &actual, &notes, &completedAt, &w.CreatedAt, &w.UpdatedAt,
		&w.FrameNumber, &w.BrandName, &w.ModelName, &w.CreatedByName, &assignedName)
	if err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		v := uint64(assignedTo.Int64)
		w.AssignedToID = &v
	}
	if estimated.Valid {
		v := estimated.Int64
		w.EstimatedCents = &v
	}
	if actual.Valid {
		v := actual.Int64
		w.ActualCents = &v
	}
	if notes.Valid {
		v := notes.String
		w.Notes = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		w.CompletedAt = &t
	}
	if assignedName.Valid {
		v := assignedName.String
		w.AssignedToName = &v
	}
	return &w, nil
}

// GetDetail returns one work order joined with bike, catalog and user
// names, or (nil, nil) when it does not exist.
func (r *WorkOrderRepo) GetDetail(ctx context.Context, id uint64) (*model.WorkOrderWithNames, error) {
	row := r.DB.QueryRowContext(ctx, workOrderJoinedQuery+` WHERE w.id = ?`, id)
	w, err := scanWorkOrderWithNames(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

// List returns a filtered, paginated page of work orders with joined
// names plus the total match count.  Newest first.
func (r *WorkOrderRepo) List(ctx context.Context, f model.WorkOrderFilter) ([]model.WorkOrderWithNames, int, error) {
	clause := ""
	args := make([]any, 0, 3)
	if f.Status != "" {
		clause = " WHERE w.status = ?"
		args = append(args, f.Status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM service_work_orders w`+clause, args...).Scan(&total); err != nil {
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

	rows, err := r.DB.QueryContext(ctx,
		workOrderJoinedQuery+clause+` ORDER BY w.created_at DESC, w.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := collectWorkOrdersWithNames(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByBike returns every work order for one bike, newest first.
func (r *WorkOrderRepo) ListByBike(ctx context.Context, bikeID uint64) ([]model.WorkOrderWithNames, error) {
	rows, err := r.DB.QueryContext(ctx,
		workOrderJoinedQuery+` WHERE w.bike_id = ? ORDER BY w.created_at DESC, w.id DESC`, bikeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkOrdersWithNames(rows)
}

// ListAllWithNames returns every work order with joined names, newest
// first.  Used by the CSV export.
func (r *WorkOrderRepo) ListAllWithNames(ctx context.Context) ([]model.WorkOrderWithNames, error) {
	rows, err := r.DB.QueryContext(ctx,
		workOrderJoinedQuery+` ORDER BY w.created_at DESC, w.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkOrdersWithNames(rows)
}

// Counts returns the dashboard aggregates over all work orders.
func (r *WorkOrderRepo) Counts(ctx context.Context) (model.WorkOrderCounts, error) {
	var c model.WorkOrderCounts
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status IN (?, ?, ?)), 0),
		        COALESCE(SUM(priority = ? AND status NOT IN (?, ?)), 0)
		 FROM service_work_orders`,
		model.WorkOrderStatusOpen, model.WorkOrderStatusInProgress, model.WorkOrderStatusWaitingParts,
		model.PriorityUrgent, model.WorkOrderStatusCompleted, model.WorkOrderStatusCancelled,
	).Scan(&c.Total, &c.Open, &c.Urgent)
	return c, err
}

// CreateWithBikeTransition inserts the work order and, when a
// transition is given, flips the bike status and appends the audit
// movement, all in one transaction.  The generated ID and timestamps
// are written back into wo.
func (r *WorkOrderRepo) CreateWithBikeTransition(ctx context.Context, wo *model.ServiceWorkOrder, tr *model.BikeTransition) error {
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

	if tr != nil {
		if err := applyBikeTransitionTx(ctx, tx, tr); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO service_work_orders (bike_id, description, status, priority, created_by_id,
		                                  assigned_to_id, estimated_cents, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wo.BikeID, wo.Description, wo.Status, wo.Priority, wo.CreatedByID,
		wo.AssignedToID, wo.EstimatedCents, wo.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	wo.ID = uint64(id)

	row := tx.QueryRowContext(ctx,
		`SELECT `+workOrderColumns+` FROM service_work_orders WHERE id = ?`, wo.ID)
	if err := scanWorkOrder(row, wo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateWithBikeTransition applies the patch, flips the bike when a
// transition is given and returns the updated row, all in one
// transaction.
func (r *WorkOrderRepo) UpdateWithBikeTransition(ctx context.Context, id uint64, patch model.WorkOrderPatch, tr *model.BikeTransition) (*model.ServiceWorkOrder, error) {
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
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.AssignedToID != nil {
		sets = append(sets, "assigned_to_id = ?")
		args = append(args, *patch.AssignedToID) // *uint64, nil clears the column
	}
	if patch.ActualCents != nil {
		sets = append(sets, "actual_cents = ?")
		args = append(args, *patch.ActualCents)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.CompletedAt != nil {
		sets = append(sets, "completed_at = ?")
		args = append(args, *patch.CompletedAt)
	}
	if len(sets) > 0 {
		query := "UPDATE service_work_orders SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := tx.ExecContext(ctx, query, append(args, id)...); err != nil {
			return nil, err
		}
	}

	if tr != nil {
		if err := applyBikeTransitionTx(ctx, tx, tr); err != nil {
			return nil, err
		}
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+workOrderColumns+` FROM service_work_orders WHERE id = ?`, id)
	var wo model.ServiceWorkOrder
	if err := scanWorkOrder(row, &wo); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &wo, nil
}

// applyBikeTransitionTx flips the bike status and records the movement
// within the caller's transaction.  The UPDATE re-checks the status the
// transition was validated against; when a concurrent request moved the
// bike first, ErrBikeStatusChanged is returned and the caller rolls the
// whole transaction back.
func applyBikeTransitionTx(ctx context.Context, tx *sql.Tx, tr *model.BikeTransition) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bikes SET status = ? WHERE id = ? AND status = ?`,
		tr.ToStatus, tr.BikeID, tr.FromStatus)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrBikeStatusChanged
	}
	mv := tr.Movement
	return insertMovementTx(ctx, tx, &mv)
}

func collectWorkOrdersWithNames(rows *sql.Rows) ([]model.WorkOrderWithNames, error) {
	orders := make([]model.WorkOrderWithNames, 0)
	for rows.Next() {
		w, err := scanWorkOrderWithNames(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *w)
	}
	return orders, rows.Err()
}
