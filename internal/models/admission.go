package models

import "time"

// AdmissionStatus represents the lifecycle of a grade admission.
type AdmissionStatus string

// Possible admission statuses.
const (
	AdmissionStatusPending  AdmissionStatus = "PENDING"
	AdmissionStatusActive   AdmissionStatus = "ACTIVE"
	AdmissionStatusInactive AdmissionStatus = "INACTIVE"
)

// StudentAdmission records a student's right to be placed in some section
// of a grade. It is not itself a section placement; only admissions with
// status ACTIVE make the student eligible for enrollment.
type StudentAdmission struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	GradeID    string          `db:"grade_id" json:"grade_id"`
	Status     AdmissionStatus `db:"status" json:"status"`
	AdmittedBy string          `db:"admitted_by" json:"admitted_by"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// AdmissionFilter captures list filters for admissions.
type AdmissionFilter struct {
	StudentID string
	GradeID   string
	Status    AdmissionStatus
	Page      int
	PageSize  int
}
