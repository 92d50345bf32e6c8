package identity

import (
	"context"
	"time"
)

// Store is the persistence boundary for the identity domain. The postgres
// implementation lives in internal/store/pg; tests use in-memory fakes.
type Store interface {
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
	Permissions(ctx context.Context) PermissionStore
}

// UserUpdate is a partial update; nil fields keep their stored value.
type UserUpdate struct {
	Email         *string
	FirstName     *string
	LastName      *string
	EmailVerified *bool
}

// UserStore persists users and their role assignments.
type UserStore interface {
	// Create inserts a new user. Returns ErrEmailInUse when the address is
	// already registered.
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	// List returns one page ordered by creation time descending plus the
	// total count across all pages.
	List(ctx context.Context, page, limit int) ([]*User, int, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	// ResetPassword sets the new hash and clears the pending reset token in
	// a single statement.
	ResetPassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
	// AssignRoles replaces the user's role set wholesale. If any role id
	// does not exist the whole operation is rolled back.
	AssignRoles(ctx context.Context, userID string, roleIDs []int64) error
	RolesOf(ctx context.Context, userID string) ([]*Role, error)
	// PermissionsOf returns the deduplicated union of permissions granted
	// through every role the user holds.
	PermissionsOf(ctx context.Context, userID string) ([]*Permission, error)
}

// RoleUpdate is a partial update; nil fields keep their stored value.
type RoleUpdate struct {
	Name        *string
	Description *string
}

// RoleStore persists roles and their permission grants.
type RoleStore interface {
	// Create inserts a new role. Returns ErrAlreadyExists on a name clash.
	Create(ctx context.Context, r *Role) error
	Find(ctx context.Context, id int64) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Update(ctx context.Context, id int64, upd RoleUpdate) (*Role, error)
	Delete(ctx context.Context, id int64) error
	// AssignPermissions replaces the role's permission set wholesale. If any
	// permission id does not exist the whole operation is rolled back.
	AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	Permissions(ctx context.Context, roleID int64) ([]*Permission, error)
}

// PermissionUpdate is a partial update; nil fields keep their stored value.
type PermissionUpdate struct {
	Name        *string
	Description *string
}

// PermissionStore persists the permission catalog.
type PermissionStore interface {
	// Create inserts a new permission. Returns ErrAlreadyExists on a name
	// clash.
	Create(ctx context.Context, p *Permission) error
	Find(ctx context.Context, id int64) (*Permission, error)
	FindByName(ctx context.Context, name string) (*Permission, error)
	List(ctx context.Context) ([]*Permission, error)
	Update(ctx context.Context, id int64, upd PermissionUpdate) (*Permission, error)
	Delete(ctx context.Context, id int64) error
	// Ensure inserts any catalog entries missing from storage. Existing rows
	// are left untouched.
	Ensure(ctx context.Context, perms []Permission) error
}
