package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"authcore.io/internal/identity"
)

type updateUserRequest struct {
	Email         *string `json:"email" validate:"omitempty,email"`
	FirstName     *string `json:"first_name" validate:"omitempty,max=100"`
	LastName      *string `json:"last_name" validate:"omitempty,max=100"`
	EmailVerified *bool   `json:"email_verified"`
}

type assignRolesRequest struct {
	RoleIDs []int64 `json:"role_ids" validate:"required"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, identity.PermReadUser) {
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	if limit > 100 {
		limit = 100
	}
	res, err := a.rbac.ListUsers(r.Context(), page, limit)
	if err != nil {
		a.identityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]

	switch {
	case len(parts) == 1:
		a.handleUser(w, r, userID)
	case len(parts) == 2 && parts[1] == "roles":
		a.handleUserRoles(w, r, userID)
	case len(parts) == 2 && parts[1] == "permissions":
		a.handleUserPermissions(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUser(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadUser) {
			return
		}
		u, err := a.rbac.GetUser(r.Context(), userID)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodPatch:
		if !a.ensurePermissions(w, r, identity.PermUpdateUser) {
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		u, err := a.rbac.UpdateUser(r.Context(), userID, identity.UserUpdate{
			Email:         req.Email,
			FirstName:     req.FirstName,
			LastName:      req.LastName,
			EmailVerified: req.EmailVerified,
		})
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)

	case http.MethodDelete:
		if !a.ensurePermissions(w, r, identity.PermDeleteUser) {
			return
		}
		if err := a.rbac.DeleteUser(r.Context(), userID); err != nil {
			a.identityError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if !a.ensurePermissions(w, r, identity.PermReadUser, identity.PermReadRole) {
			return
		}
		roles, err := a.rbac.UserRoles(r.Context(), userID)
		if err != nil {
			a.identityError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": roles})

	case http.MethodPut:
		if !a.ensurePermissions(w, r, identity.PermUpdateUser, identity.PermReadRole) {
			return
		}
		var req assignRolesRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := validateStruct(req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.rbac.AssignUserRoles(r.Context(), userID, req.RoleIDs); err != nil {
			a.identityError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleUserPermissions(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermissions(w, r, identity.PermReadUser, identity.PermReadPermission) {
		return
	}
	perms, err := a.rbac.UserPermissions(r.Context(), userID)
	if err != nil {
		a.identityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
