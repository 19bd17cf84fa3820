package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Authorization is not encoded on the user row itself: roles
// are linked through the user_roles table and resolved (with their
// permissions) by the role cache.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// DefaultRoleName is granted to every newly registered user.
const DefaultRoleName = "medewerker"

// Role represents a row in the `roles` table.  Roles group permissions
// and are linked to users through user_roles.
type Role struct {
	ID        uint64    // roles.id
	Name      string    // roles.name (unique)
	CreatedAt time.Time // roles.created_at
}

// Permission represents a row in the static `permissions` catalog,
// e.g. "bikes:read".  Permissions are linked to roles through
// role_permissions.
type Permission struct {
	ID   uint64 // permissions.id
	Name string // permissions.name (unique)
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only
// the SHA-256 hash of the token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
