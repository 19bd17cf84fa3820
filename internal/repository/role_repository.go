package repository

import (
	"context"
	"database/sql"

	"github.com/velodepot/bikeshop/internal/auth"
	"github.com/velodepot/bikeshop/internal/model"
)

// RoleRepo resolves role assignments and permissions.  It implements
// auth.GrantLoader against MySQL.
type RoleRepo struct{ DB *sql.DB }

// NewRoleRepo returns a RoleRepo bound to the given database.
func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// LoadGrants resolves the role names of a user and the union of the
// permissions those roles carry.  A user without any roles gets empty
// non-nil sets.
func (r *RoleRepo) LoadGrants(ctx context.Context, userID uint64) (auth.Grants, error) {
	grants := auth.Grants{
		Roles:       make([]string, 0, 2),
		Permissions: make(map[string]struct{}),
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.name
		 FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = ?
		 ORDER BY r.name ASC`, userID)
	if err != nil {
		return auth.Grants{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return auth.Grants{}, err
		}
		grants.Roles = append(grants.Roles, name)
	}
	if err := rows.Err(); err != nil {
		return auth.Grants{}, err
	}

	permRows, err := r.DB.QueryContext(ctx,
		`SELECT DISTINCT p.name
		 FROM user_roles ur
		 JOIN role_permissions rp ON rp.role_id = ur.role_id
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE ur.user_id = ?`, userID)
	if err != nil {
		return auth.Grants{}, err
	}
	defer permRows.Close()
	for permRows.Next() {
		var name string
		if err := permRows.Scan(&name); err != nil {
			return auth.Grants{}, err
		}
		grants.Permissions[name] = struct{}{}
	}
	if err := permRows.Err(); err != nil {
		return auth.Grants{}, err
	}
	return grants, nil
}

// GetByName fetches a role by its unique name.  Returns
// ErrRoleNotFound when it does not exist.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM roles WHERE name=? LIMIT 1",
		name).Scan(&role.ID, &role.Name, &role.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Role{}, ErrRoleNotFound
	}
	return role, err
}

// Assign links a role to a user.  Assigning an already-held role is a
// no-op.
func (r *RoleRepo) Assign(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO user_roles (user_id, role_id) VALUES (?,?)",
		userID, roleID)
	return err
}

// Revoke removes a role from a user.
func (r *RoleRepo) Revoke(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=? AND role_id=?",
		userID, roleID)
	return err
}

// ListRoles returns all roles in alphabetical order.
func (r *RoleRepo) ListRoles(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, created_at FROM roles ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]model.Role, 0)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
