// Package repository implements the MySQL persistence layer.  One
// repo struct per aggregate, bound to a *sql.DB; operations that must
// be atomic (a row change plus its audit movement, a work order plus
// its bike flip) run as composite methods holding one transaction so
// callers never see a partial write.
package repository

import "errors"

// ErrEmailExists is returned when a user insert collides with the
// unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrRoleNotFound is returned when a named role does not exist.
var ErrRoleNotFound = errors.New("role not found")
