package models

import "time"

// Grade is a tenant-scoped grade level (not school-scoped). Level is the
// ordering key.
type Grade struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Name      string    `db:"name" json:"name"`
	Level     int       `db:"level" json:"level"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GradeFilter captures list filters for grades.
type GradeFilter struct {
	TenantID  string
	Search    string
	Page      int
	PageSize  int
	SortOrder string
}
