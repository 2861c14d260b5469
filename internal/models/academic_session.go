package models

import "time"

// AcademicSession is a time-boxed academic year or term within a tenant.
// At most one session per tenant is conventionally active; the store does
// not hard-enforce singularity and enrollment operations always receive an
// explicit session id from the caller.
type AcademicSession struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AcademicSessionFilter captures list filters for sessions.
type AcademicSessionFilter struct {
	TenantID  string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
