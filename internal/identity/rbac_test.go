package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func newTestRBAC(t *testing.T) (*RBACService, *InMemory) {
	t.Helper()
	st := NewInMemory()
	seedCatalog(t, st)
	svc, err := NewRBACService(st)
	if err != nil {
		t.Fatalf("new rbac service: %v", err)
	}
	return svc, st
}

func createTestUser(t *testing.T, st Store, email string) *User {
	t.Helper()
	u := &User{ID: uuid.NewString(), Email: email, PasswordHash: "x"}
	if err := st.Users(context.Background()).Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestRoleLifecycle(t *testing.T) {
	svc, _ := newTestRBAC(t)
	ctx := context.Background()

	r, err := svc.CreateRole(ctx, " AUDITOR ", "read-only reviewers")
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	if r.Name != "AUDITOR" {
		t.Fatalf("name not trimmed: %q", r.Name)
	}

	if _, err := svc.CreateRole(ctx, "AUDITOR", ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate name: got %v", err)
	}
	if _, err := svc.CreateRole(ctx, "  ", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank name: got %v", err)
	}

	desc := "updated"
	updated, err := svc.UpdateRole(ctx, r.ID, RoleUpdate{Description: &desc})
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.Description != "updated" {
		t.Fatalf("description not applied: %q", updated.Description)
	}

	clash := RoleAdmin
	if _, err := svc.UpdateRole(ctx, r.ID, RoleUpdate{Name: &clash}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("rename onto ADMIN: got %v", err)
	}

	if err := svc.DeleteRole(ctx, r.ID); err != nil {
		t.Fatalf("delete custom role: %v", err)
	}
	if _, err := svc.GetRole(ctx, r.ID); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("role should be gone, got %v", err)
	}
}

func TestSystemRolesAreProtected(t *testing.T) {
	svc, _ := newTestRBAC(t)
	ctx := context.Background()

	for _, name := range []string{RoleAdmin, RoleStaff, RoleDeveloper} {
		roles, err := svc.ListRoles(ctx)
		if err != nil {
			t.Fatal(err)
		}
		var id int64
		for _, r := range roles {
			if r.Name == name {
				id = r.ID
			}
		}
		if id == 0 {
			t.Fatalf("seed role %s missing", name)
		}
		if err := svc.DeleteRole(ctx, id); !errors.Is(err, ErrProtected) {
			t.Fatalf("delete %s: expected ErrProtected, got %v", name, err)
		}
	}
}

func TestPermissionLifecycle(t *testing.T) {
	svc, _ := newTestRBAC(t)
	ctx := context.Background()

	p, err := svc.CreatePermission(ctx, "EXPORT_REPORTS", "download reporting data")
	if err != nil {
		t.Fatalf("create permission: %v", err)
	}
	if _, err := svc.CreatePermission(ctx, "EXPORT_REPORTS", ""); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate name: got %v", err)
	}

	clash := PermReadUser
	if _, err := svc.UpdatePermission(ctx, p.ID, PermissionUpdate{Name: &clash}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("rename onto %s: got %v", PermReadUser, err)
	}

	if err := svc.DeletePermission(ctx, p.ID); err != nil {
		t.Fatalf("delete custom permission: %v", err)
	}
}

func TestSystemPermissionsAreProtected(t *testing.T) {
	svc, _ := newTestRBAC(t)
	ctx := context.Background()

	perms, err := svc.ListPermissions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != len(SeedPermissions) {
		t.Fatalf("expected %d seed permissions, got %d", len(SeedPermissions), len(perms))
	}
	for _, p := range perms {
		if err := svc.DeletePermission(ctx, p.ID); !errors.Is(err, ErrProtected) {
			t.Fatalf("delete %s: expected ErrProtected, got %v", p.Name, err)
		}
	}
}

func TestAssignUserRolesAtomic(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()
	u := createTestUser(t, st, "henry@example.com")

	staff, err := st.Roles(ctx).FindByName(ctx, RoleStaff)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignUserRoles(ctx, u.ID, []int64{staff.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	// One valid id plus one missing id must leave the assignment untouched.
	admin, err := st.Roles(ctx).FindByName(ctx, RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	err = svc.AssignUserRoles(ctx, u.ID, []int64{admin.ID, 9999})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	roles, err := svc.UserRoles(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 1 || roles[0].Name != RoleStaff {
		t.Fatalf("assignment must be unchanged, got %v", roles)
	}

	if err := svc.AssignUserRoles(ctx, "missing-user", []int64{staff.ID}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAssignRolePermissionsAtomic(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()

	r, err := svc.CreateRole(ctx, "SUPPORT", "")
	if err != nil {
		t.Fatal(err)
	}
	readUser, err := st.Permissions(ctx).FindByName(ctx, PermReadUser)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignRolePermissions(ctx, r.ID, []int64{readUser.ID}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	err = svc.AssignRolePermissions(ctx, r.ID, []int64{readUser.ID, 9999})
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	granted, err := svc.RolePermissions(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(granted) != 1 || granted[0].Name != PermReadUser {
		t.Fatalf("grants must be unchanged, got %v", granted)
	}
}

func TestUserPermissionsUnion(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()
	u := createTestUser(t, st, "iris@example.com")

	// The STAFF grant set is a subset of DEVELOPER's, so the union across
	// both roles must deduplicate to exactly the DEVELOPER set.
	staff, _ := st.Roles(ctx).FindByName(ctx, RoleStaff)
	dev, _ := st.Roles(ctx).FindByName(ctx, RoleDeveloper)
	if err := svc.AssignUserRoles(ctx, u.ID, []int64{staff.ID, dev.ID}); err != nil {
		t.Fatal(err)
	}

	perms, err := svc.UserPermissions(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != len(SeedGrants[RoleDeveloper]) {
		t.Fatalf("expected %d deduplicated permissions, got %d", len(SeedGrants[RoleDeveloper]), len(perms))
	}
	seen := make(map[string]int)
	for _, p := range perms {
		seen[p.Name]++
	}
	if seen[PermReadUser] != 1 {
		t.Fatalf("READ_USER must appear exactly once, got %d", seen[PermReadUser])
	}
}

func TestListUsersPagination(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		createTestUser(t, st, fmt.Sprintf("user%d@example.com", i))
	}

	page, err := svc.ListUsers(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 2 {
		t.Fatalf("expected 2 users on page 2, got %d", len(page.Users))
	}
	if page.Pagination.Total != 5 || page.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}

	// Newest first: page 1 starts with the most recently created user.
	first, err := svc.ListUsers(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if first.Users[0].Email != "user4@example.com" {
		t.Fatalf("expected newest user first, got %s", first.Users[0].Email)
	}

	// Past the last page: empty slice, total intact.
	tail, err := svc.ListUsers(ctx, 9, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(tail.Users) != 0 || tail.Pagination.Total != 5 {
		t.Fatalf("unexpected tail page: %+v", tail)
	}

	// Zero limit yields an empty page without an error.
	empty, err := svc.ListUsers(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty.Users) != 0 || empty.Pagination.Total != 5 || empty.Pagination.TotalPages != 0 {
		t.Fatalf("unexpected zero-limit page: %+v", empty)
	}
}

func TestUpdateUserEmailClash(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()

	a := createTestUser(t, st, "a@example.com")
	createTestUser(t, st, "b@example.com")

	email := "b@example.com"
	if _, err := svc.UpdateUser(ctx, a.ID, UserUpdate{Email: &email}); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}

	// Re-submitting the current address is not a clash.
	same := "a@example.com"
	if _, err := svc.UpdateUser(ctx, a.ID, UserUpdate{Email: &same}); err != nil {
		t.Fatalf("self-update: %v", err)
	}

	name := "Ada"
	got, err := svc.UpdateUser(ctx, a.ID, UserUpdate{FirstName: &name})
	if err != nil {
		t.Fatalf("update name: %v", err)
	}
	if got.FirstName != "Ada" {
		t.Fatalf("first name not applied: %q", got.FirstName)
	}
}

func TestDeleteUser(t *testing.T) {
	svc, st := newTestRBAC(t)
	ctx := context.Background()
	u := createTestUser(t, st, "judy@example.com")

	if err := svc.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetUser(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := svc.DeleteUser(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("double delete: got %v", err)
	}
}
