package models

import "time"

// Tenant is the top-level isolation boundary. Schools, grades and academic
// sessions all hang off a tenant; nothing is visible across tenants.
type Tenant struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	AdminName  *string   `db:"admin_name" json:"admin_name,omitempty"`
	AdminEmail *string   `db:"admin_email" json:"admin_email,omitempty"`
	AdminPhone *string   `db:"admin_phone" json:"admin_phone,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TenantFilter captures list filters for tenants.
type TenantFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
