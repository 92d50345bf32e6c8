// Package authz implements the authorization decision primitives. Both
// decisions are pure functions over claims already present in a verified
// token, so no storage access happens on the request path.
package authz

import (
	"authcore.io/internal/token"
)

// HasAnyRole reports whether the claims carry at least one of the required
// roles. Used for coarse gating. An empty requirement always passes.
func HasAnyRole(claims *token.Claims, required ...string) bool {
	if claims == nil {
		return false
	}
	if len(required) == 0 {
		return true
	}
	held := make(map[string]struct{}, len(claims.Roles))
	for _, r := range claims.Roles {
		held[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := held[r]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every required permission name is present
// in the claims. Used for fine-grained per-operation gating.
func HasAllPermissions(claims *token.Claims, required ...string) bool {
	if claims == nil {
		return false
	}
	held := make(map[string]struct{}, len(claims.Permissions))
	for _, p := range claims.Permissions {
		held[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := held[p]; !ok {
			return false
		}
	}
	return true
}
