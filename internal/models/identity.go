package models

// IdentityState classifies how far session resolution got.
type IdentityState string

const (
	// IdentityResolved means the session mapped to a user with a role.
	IdentityResolved IdentityState = "RESOLVED"
	// IdentityUnauthenticated means there is no usable session, or the
	// profile lookup failed. Stale identities are never served.
	IdentityUnauthenticated IdentityState = "UNAUTHENTICATED"
	// IdentityIncomplete means the session is valid but the profile has no
	// role assigned yet; callers route to profile completion.
	IdentityIncomplete IdentityState = "INCOMPLETE"
)

// Identity is the resolved view of an authentication session. It is a plain
// value passed explicitly into policy and reconciliation calls; nothing in
// the engine reads ambient session state. TenantID and SchoolID carry the
// authorization scope for non-superadmin roles.
type Identity struct {
	State    IdentityState `json:"state"`
	UserID   string        `json:"user_id,omitempty"`
	FullName string        `json:"full_name,omitempty"`
	Role     Role          `json:"role,omitempty"`
	TenantID *string       `json:"tenant_id,omitempty"`
	SchoolID *string       `json:"school_id,omitempty"`
}

// Unauthenticated is the zero-trust identity returned when resolution fails.
func Unauthenticated() Identity {
	return Identity{State: IdentityUnauthenticated}
}

// Resolved reports whether the identity carries a usable role.
func (i Identity) Resolved() bool {
	return i.State == IdentityResolved
}

// Superadmin reports whether the identity dominates every scoped role.
func (i Identity) Superadmin() bool {
	return i.State == IdentityResolved && i.Role == RoleSuperAdmin
}

// InTenant reports whether the identity may see resources of the tenant.
// Superadmins see every tenant; scoped roles only their own.
func (i Identity) InTenant(tenantID string) bool {
	if !i.Resolved() {
		return false
	}
	if i.Superadmin() {
		return true
	}
	return i.TenantID != nil && *i.TenantID == tenantID
}
