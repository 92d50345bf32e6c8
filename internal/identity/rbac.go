package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RBACService implements administrative management of users, roles and
// permissions, including the assignment edges between them.
type RBACService struct {
	store Store
}

// NewRBACService wires the administrative operations over a store.
func NewRBACService(store Store) (*RBACService, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	return &RBACService{store: store}, nil
}

// GetUser returns one sanitized user record.
func (s *RBACService) GetUser(ctx context.Context, id string) (PublicUser, error) {
	u, err := s.store.Users(ctx).Find(ctx, id)
	if err != nil {
		return PublicUser{}, err
	}
	return u.Public(), nil
}

// ListUsers returns one page of sanitized users ordered by creation time
// descending. Page numbers start at 1; a non-positive limit yields an empty
// page with the total still populated.
func (s *RBACService) ListUsers(ctx context.Context, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	users, total, err := s.store.Users(ctx).List(ctx, page, limit)
	if err != nil {
		return UserPage{}, err
	}
	out := UserPage{
		Users: make([]PublicUser, 0, len(users)),
		Pagination: Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
		},
	}
	for _, u := range users {
		out.Users = append(out.Users, u.Public())
	}
	if limit > 0 {
		out.Pagination.TotalPages = (total + limit - 1) / limit
	}
	return out, nil
}

// UpdateUser applies a partial update. Changing the email to an address held
// by another account fails with ErrEmailInUse.
func (s *RBACService) UpdateUser(ctx context.Context, id string, upd UserUpdate) (PublicUser, error) {
	users := s.store.Users(ctx)
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email == "" {
			return PublicUser{}, fmt.Errorf("%w: email must not be empty", ErrInvalidInput)
		}
		upd.Email = &email
		existing, err := users.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return PublicUser{}, ErrEmailInUse
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return PublicUser{}, err
		}
	}
	u, err := users.Update(ctx, id, upd)
	if err != nil {
		return PublicUser{}, err
	}
	return u.Public(), nil
}

// DeleteUser removes a user and, via cascade, its role assignments.
func (s *RBACService) DeleteUser(ctx context.Context, id string) error {
	return s.store.Users(ctx).Delete(ctx, id)
}

// UserRoles returns the roles directly assigned to a user.
func (s *RBACService) UserRoles(ctx context.Context, userID string) ([]*Role, error) {
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Users(ctx).RolesOf(ctx, userID)
}

// UserPermissions returns the deduplicated union of permissions the user
// holds through all assigned roles.
func (s *RBACService) UserPermissions(ctx context.Context, userID string) ([]*Permission, error) {
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Users(ctx).PermissionsOf(ctx, userID)
}

// AssignUserRoles replaces the user's role set wholesale. Every referenced
// role must exist or the previous assignment stays in place.
func (s *RBACService) AssignUserRoles(ctx context.Context, userID string, roleIDs []int64) error {
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return err
	}
	return s.store.Users(ctx).AssignRoles(ctx, userID, roleIDs)
}

// CreateRole adds a role with a unique name.
func (s *RBACService) CreateRole(ctx context.Context, name, description string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name must not be empty", ErrInvalidInput)
	}
	r := &Role{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.Roles(ctx).Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRole returns one role.
func (s *RBACService) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.store.Roles(ctx).Find(ctx, id)
}

// ListRoles returns every role.
func (s *RBACService) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.store.Roles(ctx).List(ctx)
}

// UpdateRole applies a partial update. Renaming onto an existing role name
// fails with ErrAlreadyExists.
func (s *RBACService) UpdateRole(ctx context.Context, id int64, upd RoleUpdate) (*Role, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: role name must not be empty", ErrInvalidInput)
		}
		upd.Name = &name
		existing, err := s.store.Roles(ctx).FindByName(ctx, name)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrAlreadyExists
		case err != nil && !errors.Is(err, ErrRoleNotFound):
			return nil, err
		}
	}
	return s.store.Roles(ctx).Update(ctx, id, upd)
}

// DeleteRole removes a role. Built-in system roles are deletion-protected.
func (s *RBACService) DeleteRole(ctx context.Context, id int64) error {
	r, err := s.store.Roles(ctx).Find(ctx, id)
	if err != nil {
		return err
	}
	if IsSystemRole(r.Name) {
		return fmt.Errorf("%w: role %s", ErrProtected, r.Name)
	}
	return s.store.Roles(ctx).Delete(ctx, id)
}

// RolePermissions returns the permissions granted to a role.
func (s *RBACService) RolePermissions(ctx context.Context, roleID int64) ([]*Permission, error) {
	if _, err := s.store.Roles(ctx).Find(ctx, roleID); err != nil {
		return nil, err
	}
	return s.store.Roles(ctx).Permissions(ctx, roleID)
}

// AssignRolePermissions replaces the role's permission grants wholesale.
// Every referenced permission must exist or the previous grants stay in
// place.
func (s *RBACService) AssignRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.store.Roles(ctx).Find(ctx, roleID); err != nil {
		return err
	}
	return s.store.Roles(ctx).AssignPermissions(ctx, roleID, permissionIDs)
}

// CreatePermission adds a permission with a unique name.
func (s *RBACService) CreatePermission(ctx context.Context, name, description string) (*Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: permission name must not be empty", ErrInvalidInput)
	}
	p := &Permission{Name: name, Description: strings.TrimSpace(description)}
	if err := s.store.Permissions(ctx).Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetPermission returns one permission.
func (s *RBACService) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	return s.store.Permissions(ctx).Find(ctx, id)
}

// ListPermissions returns the full permission catalog.
func (s *RBACService) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return s.store.Permissions(ctx).List(ctx)
}

// UpdatePermission applies a partial update. Renaming onto an existing
// permission name fails with ErrAlreadyExists.
func (s *RBACService) UpdatePermission(ctx context.Context, id int64, upd PermissionUpdate) (*Permission, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: permission name must not be empty", ErrInvalidInput)
		}
		upd.Name = &name
		existing, err := s.store.Permissions(ctx).FindByName(ctx, name)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrAlreadyExists
		case err != nil && !errors.Is(err, ErrPermissionNotFound):
			return nil, err
		}
	}
	return s.store.Permissions(ctx).Update(ctx, id, upd)
}

// DeletePermission removes a permission. The built-in catalog entries are
// deletion-protected.
func (s *RBACService) DeletePermission(ctx context.Context, id int64) error {
	p, err := s.store.Permissions(ctx).Find(ctx, id)
	if err != nil {
		return err
	}
	if IsSystemPermission(p.Name) {
		return fmt.Errorf("%w: permission %s", ErrProtected, p.Name)
	}
	return s.store.Permissions(ctx).Delete(ctx, id)
}
