package models

import "time"

// Role represents the available roles for access control.
type Role string

const (
	RoleSuperAdmin  Role = "SUPERADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN"
	RoleSchoolAdmin Role = "SCHOOL_ADMIN"
	RoleTeacher     Role = "TEACHER"
	RoleStaff       Role = "STAFF"
	RoleStudent     Role = "STUDENT"
	RoleParent      Role = "PARENT"
)

// ScopedRoles lists every role other than SUPERADMIN. SUPERADMIN is not
// part of the set it dominates.
var ScopedRoles = []Role{RoleTenantAdmin, RoleSchoolAdmin, RoleTeacher, RoleStaff, RoleStudent, RoleParent}

// Valid reports whether the role is a known member of the hierarchy.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleSchoolAdmin, RoleTeacher, RoleStaff, RoleStudent, RoleParent:
		return true
	}
	return false
}

// User represents an application user stored in the users table. Role is
// nullable: a user created through sign-up but not yet assigned a role has
// an incomplete profile and must not be granted access to scoped resources.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         *Role      `db:"role" json:"role,omitempty"`
	TenantID     *string    `db:"tenant_id" json:"tenant_id,omitempty"`
	SchoolID     *string    `db:"school_id" json:"school_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *Role
	TenantID  string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
