package models

import "time"

// School belongs to exactly one tenant.
type School struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Type      *string   `db:"type" json:"type,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolFilter captures list filters for schools.
type SchoolFilter struct {
	TenantID  string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
