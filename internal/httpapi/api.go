// Package httpapi exposes the authentication and RBAC services over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"authcore.io/api/spec"
	"authcore.io/internal/identity"
	"authcore.io/internal/obs"
	"authcore.io/internal/token"
)

// ReadyProbe reports whether the service can reach its dependencies.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	codec *token.Codec
	auth  *identity.Service
	rbac  *identity.RBACService

	rateBurst   int
	ratePerSec  int
	maxBody     int64
	errorDetail bool
}

// Option customizes the API.
type Option func(*API)

// WithRateLimit overrides the default per-client token-bucket settings.
func WithRateLimit(perSecond, burst int) Option {
	return func(a *API) {
		if perSecond > 0 {
			a.ratePerSec = perSecond
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// WithErrorDetail controls whether unexpected errors surface their message in
// 500 responses. Keep it off in production.
func WithErrorDetail(enabled bool) Option {
	return func(a *API) { a.errorDetail = enabled }
}

func New(rp ReadyProbe, version string, codec *token.Codec, authSvc *identity.Service, rbacSvc *identity.RBACService, opts ...Option) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		codec:      codec,
		auth:       authSvc,
		rbac:       rbacSvc,
		rateBurst:  40,
		ratePerSec: 20,
		maxBody:    1 << 20,
	}
	for _, opt := range opts {
		opt(a)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// authentication flows
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh-token", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/forgot-password", a.handleForgotPassword)
	a.mux.HandleFunc("/v1/auth/reset-password", a.handleResetPassword)

	// administration
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/roles", a.handleRolesCollection)
	a.mux.HandleFunc("/v1/roles/", a.handleRoleResource)
	a.mux.HandleFunc("/v1/permissions", a.handlePermissionsCollection)
	a.mux.HandleFunc("/v1/permissions/", a.handlePermissionResource)

	// OpenAPI YAML + gated interactive docs
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)
	a.mux.HandleFunc("/docs", a.Docs)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authcore-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "authcore-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
	<title>AuthCore API</title>
	<meta charset="utf-8"/>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>body { margin: 0; padding: 0; }</style>
</head>
<body>
	<redoc spec-url="/openapi.yaml"></redoc>
	<script src="https://cdn.jsdelivr.net/npm/redoc@latest/bundles/redoc.standalone.js"></script>
</body>
</html>`

// Docs serves the interactive API reference. Access requires the ADMIN or
// DEVELOPER role plus the documentation permission.
func (a *API) Docs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureRoles(w, r, identity.RoleAdmin, identity.RoleDeveloper) {
		return
	}
	if !a.ensurePermissions(w, r, identity.PermAccessSwagger) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":      msg,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// identityError maps domain sentinels onto HTTP statuses. Unexpected errors
// stay opaque unless error detail is enabled.
func (a *API) identityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrEmailInUse):
		writeError(w, r, http.StatusBadRequest, "email already in use")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, identity.ErrInvalidResetToken):
		writeError(w, r, http.StatusBadRequest, "invalid or expired reset token")
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrRoleNotFound),
		errors.Is(err, identity.ErrPermissionNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, identity.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrProtected):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, identity.ErrConfiguration):
		writeError(w, r, http.StatusInternalServerError, "service misconfigured")
	default:
		if a.errorDetail {
			writeError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "operation failed")
	}
}
