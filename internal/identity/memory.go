package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemory is a Store for tests and local development. It honors the same
// contracts as the postgres implementation: sentinel errors, wholesale
// replacement of assignment sets and atomic rejection when a referenced id
// is missing.
type InMemory struct {
	mu        sync.Mutex
	users     map[string]*User
	roles     map[int64]*Role
	perms     map[int64]*Permission
	userRoles map[string]map[int64]struct{}
	rolePerms map[int64]map[int64]struct{}
	nextRole  int64
	nextPerm  int64
	tick      int64
}

// NewInMemory returns an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:     make(map[string]*User),
		roles:     make(map[int64]*Role),
		perms:     make(map[int64]*Permission),
		userRoles: make(map[string]map[int64]struct{}),
		rolePerms: make(map[int64]map[int64]struct{}),
	}
}

func (m *InMemory) Users(context.Context) UserStore             { return (*inMemUsers)(m) }
func (m *InMemory) Roles(context.Context) RoleStore             { return (*inMemRoles)(m) }
func (m *InMemory) Permissions(context.Context) PermissionStore { return (*inMemPerms)(m) }

// now returns a strictly increasing timestamp so creation order is stable.
func (m *InMemory) now() time.Time {
	m.tick++
	return time.Unix(1700000000+m.tick, 0).UTC()
}

func cloneUser(u *User) *User { c := *u; return &c }
func cloneRole(r *Role) *Role { c := *r; return &c }
func clonePerm(p *Permission) *Permission {
	c := *p
	return &c
}

type inMemUsers InMemory

func (m *inMemUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailInUse
		}
	}
	now := (*InMemory)(m).now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.users[u.ID] = cloneUser(u)
	m.userRoles[u.ID] = make(map[int64]struct{})
	return nil
}

func (m *inMemUsers) Find(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (m *inMemUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *inMemUsers) List(_ context.Context, page, limit int) ([]*User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, cloneUser(u))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if limit <= 0 {
		return nil, total, nil
	}
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *inMemUsers) Update(_ context.Context, id string, upd UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if upd.Email != nil {
		for uid, other := range m.users {
			if uid != id && other.Email == *upd.Email {
				return nil, ErrEmailInUse
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
	u.UpdatedAt = (*InMemory)(m).now()
	return cloneUser(u), nil
}

func (m *inMemUsers) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *inMemUsers) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpiresAt = expiresAt
	return nil
}

func (m *inMemUsers) ResetPassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	u.ResetToken = ""
	u.ResetTokenExpiresAt = time.Time{}
	return nil
}

func (m *inMemUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *inMemUsers) AssignRoles(_ context.Context, userID string, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrUserNotFound
	}
	next := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		if _, ok := m.roles[id]; !ok {
			return ErrRoleNotFound
		}
		next[id] = struct{}{}
	}
	m.userRoles[userID] = next
	return nil
}

func (m *inMemUsers) RolesOf(_ context.Context, userID string) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Role
	for id := range m.userRoles[userID] {
		out = append(out, cloneRole(m.roles[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *inMemUsers) PermissionsOf(_ context.Context, userID string) ([]*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[int64]struct{})
	var out []*Permission
	for roleID := range m.userRoles[userID] {
		for permID := range m.rolePerms[roleID] {
			if _, dup := seen[permID]; dup {
				continue
			}
			seen[permID] = struct{}{}
			out = append(out, clonePerm(m.perms[permID]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type inMemRoles InMemory

func (m *inMemRoles) Create(_ context.Context, r *Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == r.Name {
			return ErrAlreadyExists
		}
	}
	m.nextRole++
	r.ID = m.nextRole
	now := (*InMemory)(m).now()
	r.CreatedAt, r.UpdatedAt = now, now
	m.roles[r.ID] = cloneRole(r)
	m.rolePerms[r.ID] = make(map[int64]struct{})
	return nil
}

func (m *inMemRoles) Find(_ context.Context, id int64) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	return cloneRole(r), nil
}

func (m *inMemRoles) FindByName(_ context.Context, name string) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return cloneRole(r), nil
		}
	}
	return nil, ErrRoleNotFound
}

func (m *inMemRoles) List(_ context.Context) ([]*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, cloneRole(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *inMemRoles) Update(_ context.Context, id int64, upd RoleUpdate) (*Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, ErrRoleNotFound
	}
	if upd.Name != nil {
		for rid, other := range m.roles {
			if rid != id && other.Name == *upd.Name {
				return nil, ErrAlreadyExists
			}
		}
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	r.UpdatedAt = (*InMemory)(m).now()
	return cloneRole(r), nil
}

func (m *inMemRoles) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrRoleNotFound
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	for _, assigned := range m.userRoles {
		delete(assigned, id)
	}
	return nil
}

func (m *inMemRoles) AssignPermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[roleID]; !ok {
		return ErrRoleNotFound
	}
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		if _, ok := m.perms[id]; !ok {
			return ErrPermissionNotFound
		}
		next[id] = struct{}{}
	}
	m.rolePerms[roleID] = next
	return nil
}

func (m *inMemRoles) Permissions(_ context.Context, roleID int64) ([]*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Permission
	for id := range m.rolePerms[roleID] {
		out = append(out, clonePerm(m.perms[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type inMemPerms InMemory

func (m *inMemPerms) Create(_ context.Context, p *Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(p)
}

func (m *inMemPerms) createLocked(p *Permission) error {
	for _, existing := range m.perms {
		if existing.Name == p.Name {
			return ErrAlreadyExists
		}
	}
	m.nextPerm++
	p.ID = m.nextPerm
	now := (*InMemory)(m).now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.perms[p.ID] = clonePerm(p)
	return nil
}

func (m *inMemPerms) Find(_ context.Context, id int64) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	if !ok {
		return nil, ErrPermissionNotFound
	}
	return clonePerm(p), nil
}

func (m *inMemPerms) FindByName(_ context.Context, name string) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.perms {
		if p.Name == name {
			return clonePerm(p), nil
		}
	}
	return nil, ErrPermissionNotFound
}

func (m *inMemPerms) List(_ context.Context) ([]*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, clonePerm(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *inMemPerms) Update(_ context.Context, id int64, upd PermissionUpdate) (*Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.perms[id]
	if !ok {
		return nil, ErrPermissionNotFound
	}
	if upd.Name != nil {
		for pid, other := range m.perms {
			if pid != id && other.Name == *upd.Name {
				return nil, ErrAlreadyExists
			}
		}
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	p.UpdatedAt = (*InMemory)(m).now()
	return clonePerm(p), nil
}

func (m *inMemPerms) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.perms[id]; !ok {
		return ErrPermissionNotFound
	}
	delete(m.perms, id)
	for _, granted := range m.rolePerms {
		delete(granted, id)
	}
	return nil
}

func (m *inMemPerms) Ensure(_ context.Context, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range perms {
		exists := false
		for _, existing := range m.perms {
			if existing.Name == p.Name {
				exists = true
				break
			}
		}
		if !exists {
			entry := p
			if err := m.createLocked(&entry); err != nil {
				return err
			}
		}
	}
	return nil
}
