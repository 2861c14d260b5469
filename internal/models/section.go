package models

import "time"

// Section exists within exactly one (grade, school, academic session)
// triple. Enrolling into a section implicitly scopes the student to that
// section's grade and session.
type Section struct {
	ID                string    `db:"id" json:"id"`
	GradeID           string    `db:"grade_id" json:"grade_id"`
	SchoolID          string    `db:"school_id" json:"school_id"`
	AcademicSessionID string    `db:"academic_session_id" json:"academic_session_id"`
	Name              string    `db:"name" json:"name"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// SectionScope identifies the (grade, school, session) triple under which
// the at-most-one-active-enrollment invariant is enforced.
type SectionScope struct {
	GradeID           string
	SchoolID          string
	AcademicSessionID string
}

// Empty reports whether any key of the scope is missing.
func (s SectionScope) Empty() bool {
	return s.GradeID == "" || s.SchoolID == "" || s.AcademicSessionID == ""
}

// SectionFilter captures list filters for sections.
type SectionFilter struct {
	GradeID           string
	SchoolID          string
	AcademicSessionID string
	Active            *bool
	Page              int
	PageSize          int
}
