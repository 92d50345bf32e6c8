package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authcore.io/internal/authz"
	"authcore.io/internal/token"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh-token",
	"/v1/auth/forgot-password",
	"/v1/auth/reset-password",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/openapi.yaml",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.codec == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			unauthorized(w, r, err.Error())
			return
		}

		claims, err := a.codec.Verify(raw, token.DomainAccess)
		if err != nil {
			if errors.Is(err, token.ErrInvalidToken) {
				unauthorized(w, r, "invalid or expired token")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "authentication error")
			return
		}

		ctx := authz.ContextWithClaims(r.Context(), claims)
		ctx = authz.ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ensureRoles writes a 401/403 and returns false unless the caller holds at
// least one of the required roles.
func (a *API) ensureRoles(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	claims, ok := authz.ClaimsFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return false
	}
	if !authz.HasAnyRole(claims, roles...) {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return false
	}
	return true
}

// ensurePermissions writes a 401/403 and returns false unless the caller
// holds every required permission.
func (a *API) ensurePermissions(w http.ResponseWriter, r *http.Request, perms ...string) bool {
	claims, ok := authz.ClaimsFromContext(r.Context())
	if !ok {
		unauthorized(w, r, "authentication required")
		return false
	}
	if !authz.HasAllPermissions(claims, perms...) {
		writeError(w, r, http.StatusForbidden, "insufficient permissions")
		return false
	}
	return true
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeError(w, r, http.StatusUnauthorized, msg)
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
