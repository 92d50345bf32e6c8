package identity

// System role names. These ship with every deployment and cannot be deleted.
const (
	RoleAdmin     = "ADMIN"
	RoleStaff     = "STAFF"
	RoleDeveloper = "DEVELOPER"
)

// System permission names covering CRUD on each managed entity plus access to
// the interactive API documentation. All of them are deletion-protected.
const (
	PermReadUser   = "READ_USER"
	PermCreateUser = "CREATE_USER"
	PermUpdateUser = "UPDATE_USER"
	PermDeleteUser = "DELETE_USER"

	PermReadRole   = "READ_ROLE"
	PermCreateRole = "CREATE_ROLE"
	PermUpdateRole = "UPDATE_ROLE"
	PermDeleteRole = "DELETE_ROLE"

	PermReadPermission   = "READ_PERMISSION"
	PermCreatePermission = "CREATE_PERMISSION"
	PermUpdatePermission = "UPDATE_PERMISSION"
	PermDeletePermission = "DELETE_PERMISSION"

	PermAccessSwagger = "ACCESS_SWAGGER"
)

var systemRoles = map[string]struct{}{
	RoleAdmin:     {},
	RoleStaff:     {},
	RoleDeveloper: {},
}

// IsSystemRole reports whether name belongs to the built-in role set.
func IsSystemRole(name string) bool {
	_, ok := systemRoles[name]
	return ok
}

// IsSystemPermission reports whether name belongs to the built-in permission
// catalog.
func IsSystemPermission(name string) bool {
	for _, p := range SeedPermissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// SeedRoles is the built-in role catalog installed at bootstrap.
var SeedRoles = []Role{
	{Name: RoleAdmin, Description: "Full administrative access"},
	{Name: RoleStaff, Description: "Default role for newly registered users"},
	{Name: RoleDeveloper, Description: "Engineering access including API documentation"},
}

// SeedPermissions is the built-in permission catalog installed at bootstrap.
var SeedPermissions = []Permission{
	{Name: PermReadUser, Description: "Read user records"},
	{Name: PermCreateUser, Description: "Create user records"},
	{Name: PermUpdateUser, Description: "Update user records"},
	{Name: PermDeleteUser, Description: "Delete user records"},
	{Name: PermReadRole, Description: "Read roles"},
	{Name: PermCreateRole, Description: "Create roles"},
	{Name: PermUpdateRole, Description: "Update roles"},
	{Name: PermDeleteRole, Description: "Delete roles"},
	{Name: PermReadPermission, Description: "Read permissions"},
	{Name: PermCreatePermission, Description: "Create permissions"},
	{Name: PermUpdatePermission, Description: "Update permissions"},
	{Name: PermDeletePermission, Description: "Delete permissions"},
	{Name: PermAccessSwagger, Description: "Access the interactive API documentation"},
}

// SeedGrants maps each system role to the permission names it receives at
// bootstrap. ADMIN holds everything; STAFF gets read access to the catalog;
// DEVELOPER additionally opens the documentation.
var SeedGrants = map[string][]string{
	RoleAdmin: allPermissionNames(),
	RoleStaff: {PermReadUser, PermReadRole, PermReadPermission},
	RoleDeveloper: {
		PermReadUser, PermReadRole, PermReadPermission, PermAccessSwagger,
	},
}

func allPermissionNames() []string {
	names := make([]string, 0, len(SeedPermissions))
	for _, p := range SeedPermissions {
		names = append(names, p.Name)
	}
	return names
}
