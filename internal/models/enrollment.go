package models

import "time"

// EnrollmentStatus represents the lifecycle of a section enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. TRANSFERRED and WITHDRAWN are terminal for
// the row; a transfer always creates a new ACTIVE row for the destination.
const (
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentStatusWithdrawn   EnrollmentStatus = "WITHDRAWN"
)

// SectionEnrollment is an actual section placement. GradeID and
// AcademicSessionID are denormalized from the section row so the store can
// enforce at most one ACTIVE enrollment per (student, grade, session) with
// a partial unique index.
type SectionEnrollment struct {
	ID                string           `db:"id" json:"id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	SectionID         string           `db:"section_id" json:"section_id"`
	GradeID           string           `db:"grade_id" json:"grade_id"`
	AcademicSessionID string           `db:"academic_session_id" json:"academic_session_id"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	EnrolledBy        string           `db:"enrolled_by" json:"enrolled_by"`
	EnrolledAt        time.Time        `db:"enrolled_at" json:"enrolled_at"`
	EffectiveFrom     *time.Time       `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo       *time.Time       `db:"effective_to" json:"effective_to,omitempty"`
	Notes             *string          `db:"notes" json:"notes,omitempty"`
}

// EnrollmentFilter captures list filters for enrollments.
type EnrollmentFilter struct {
	StudentID         string
	SectionID         string
	GradeID           string
	AcademicSessionID string
	Status            EnrollmentStatus
	Page              int
	PageSize          int
}

// EnrollmentResultReason explains a per-student batch outcome.
type EnrollmentResultReason string

const (
	// ReasonEnrolled marks a successful placement.
	ReasonEnrolled EnrollmentResultReason = "ENROLLED"
	// ReasonNotEligible means the student has no active admission for the
	// section's grade, or already holds an active placement in scope.
	ReasonNotEligible EnrollmentResultReason = "NOT_ELIGIBLE"
	// ReasonConflict means a concurrent actor enrolled the student between
	// the eligibility check and the write; the store rejected the insert.
	ReasonConflict EnrollmentResultReason = "ELIGIBILITY_CONFLICT"
)

// EnrollmentResult is the per-student outcome of a batch enrollment.
type EnrollmentResult struct {
	StudentID    string                 `json:"student_id"`
	OK           bool                   `json:"ok"`
	Reason       EnrollmentResultReason `json:"reason"`
	EnrollmentID string                 `json:"enrollment_id,omitempty"`
}
