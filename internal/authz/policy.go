// Package authz holds the pure authorization core: the role policy and the
// route guard decision machine. Nothing here touches gin, the database or
// any ambient session state; identities are passed in as values.
package authz

import "github.com/noah-isme/edu-platform-api/internal/models"

// IsAuthorized decides whether the identity may act as the required role.
//
// The role hierarchy is deliberately flat except at the top: SUPERADMIN
// dominates every scoped role, while scoped roles have no ordering between
// each other (a TEACHER is not "above" a STUDENT for access checks). An
// empty required role means the route carries no restriction.
func IsAuthorized(identity models.Identity, required models.Role) bool {
	if !identity.Resolved() {
		return false
	}
	if required == "" {
		return true
	}
	if identity.Role == required {
		return true
	}
	if identity.Role == models.RoleSuperAdmin && required != models.RoleSuperAdmin {
		return true
	}
	return false
}

// IsAuthorizedAny reports whether the identity satisfies at least one of
// the required roles. An empty list means no restriction.
func IsAuthorizedAny(identity models.Identity, required ...models.Role) bool {
	if len(required) == 0 {
		return IsAuthorized(identity, "")
	}
	for _, role := range required {
		if IsAuthorized(identity, role) {
			return true
		}
	}
	return false
}
