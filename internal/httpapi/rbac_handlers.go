package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"authcore.io/internal/identity"
)

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type assignPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

type createPermissionRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type updatePermissionRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (a *API) handleRolesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadRole) {
			return
		}
		roles, err := a.rbac.ListRoles(r.Context())
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})

	case http.MethodPost:
		if !a.ensurePermissions(w, r, identity.PermCreateRole) {
			return
		}
		var req createRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.rbac.CreateRole(r.Context(), req.Name, req.Description)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/roles/%d", role.ID))
		writeJSON(w, http.StatusCreated, role)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	roleID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid role id")
		return
	}

	switch {
	case len(parts) == 1:
		a.handleRole(w, r, roleID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleRolePermissions(w, r, roleID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleRole(w http.ResponseWriter, r *http.Request, roleID int64) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadRole) {
			return
		}
		role, err := a.rbac.GetRole(r.Context(), roleID)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)

	case http.MethodPatch:
		if !a.ensurePermissions(w, r, identity.PermUpdateRole) {
			return
		}
		var req updateRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, err := a.rbac.UpdateRole(r.Context(), roleID, identity.RoleUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, role)

	case http.MethodDelete:
		if !a.ensurePermissions(w, r, identity.PermDeleteRole) {
			return
		}
		if err := a.rbac.DeleteRole(r.Context(), roleID); err != nil {
			a.identityError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleRolePermissions(w http.ResponseWriter, r *http.Request, roleID int64) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadRole, identity.PermReadPermission) {
			return
		}
		perms, err := a.rbac.RolePermissions(r.Context(), roleID)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})

	case http.MethodPut:
		if !a.ensurePermissions(w, r, identity.PermUpdateRole, identity.PermReadPermission) {
			return
		}
		var req assignPermissionsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.rbac.AssignRolePermissions(r.Context(), roleID, req.PermissionIDs); err != nil {
			a.identityError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handlePermissionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadPermission) {
			return
		}
		perms, err := a.rbac.ListPermissions(r.Context())
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})

	case http.MethodPost:
		if !a.ensurePermissions(w, r, identity.PermCreatePermission) {
			return
		}
		var req createPermissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.rbac.CreatePermission(r.Context(), req.Name, req.Description)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/permissions/%d", perm.ID))
		writeJSON(w, http.StatusCreated, perm)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePermissionResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/permissions/"), "/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	permID, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid permission id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadPermission) {
			return
		}
		perm, err := a.rbac.GetPermission(r.Context(), permID)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perm)

	case http.MethodPatch:
		if !a.ensurePermissions(w, r, identity.PermUpdatePermission) {
			return
		}
		var req updatePermissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		perm, err := a.rbac.UpdatePermission(r.Context(), permID, identity.PermissionUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, perm)

	case http.MethodDelete:
		if !a.ensurePermissions(w, r, identity.PermDeletePermission) {
			return
		}
		if err := a.rbac.DeletePermission(r.Context(), permID); err != nil {
			a.identityError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}
