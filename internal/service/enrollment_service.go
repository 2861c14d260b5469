package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/internal/repository"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type enrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.SectionEnrollment, int, error)
	FindByID(ctx context.Context, id string) (*models.SectionEnrollment, error)
	ListActiveBySection(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error)
	ListActiveStudentIDsByScope(ctx context.Context, scope models.SectionScope) ([]string, error)
	InsertActiveBatch(ctx context.Context, enrollments []*models.SectionEnrollment) (map[string]bool, error)
	Transfer(ctx context.Context, sourceID string, dest *models.SectionEnrollment) error
	Withdraw(ctx context.Context, id string) error
}

type admissionReader interface {
	ListActiveStudentIDsByGrade(ctx context.Context, gradeID string) ([]string, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type gradeReader interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
}

// EnrollStudentsRequest is the batch enrollment payload.
type EnrollStudentsRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	SectionID  string   `json:"section_id" validate:"required"`
}

// TransferRequest moves an enrollment to a new section.
type TransferRequest struct {
	NewSectionID string `json:"new_section_id" validate:"required"`
}

// EnrollmentService is the reconciliation engine. It computes the
// eligible-for-enrollment set and performs placements, transfers and
// withdrawals while the store's uniqueness index keeps concurrent actors
// from double-placing a student. Identity is passed in explicitly; the
// engine never consults ambient session state.
type EnrollmentService struct {
	enrollments enrollmentStore
	admissions  admissionReader
	sections    sectionReader
	grades      gradeReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(enrollments enrollmentStore, admissions admissionReader, sections sectionReader, grades gradeReader, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{enrollments: enrollments, admissions: admissions, sections: sections, grades: grades, validator: validate, logger: logger}
}

// ListEligible returns the students admitted to the grade who hold no
// active placement in any section of the scope. An empty scope yields an
// empty set rather than an error, and a grade with no sections yet still
// reports its admitted students: admission alone suffices for eligibility.
func (s *EnrollmentService) ListEligible(ctx context.Context, scope models.SectionScope) ([]string, error) {
	if scope.Empty() {
		return []string{}, nil
	}

	admitted, err := s.admissions.ListActiveStudentIDsByGrade(ctx, scope.GradeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admitted students")
	}

	placed, err := s.enrollments.ListActiveStudentIDsByScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placed students")
	}

	placedSet := make(map[string]struct{}, len(placed))
	for _, id := range placed {
		placedSet[id] = struct{}{}
	}

	eligible := make([]string, 0, len(admitted))
	for _, id := range admitted {
		if _, ok := placedSet[id]; !ok {
			eligible = append(eligible, id)
		}
	}
	return eligible, nil
}

// EnrollStudents places a batch of students into a section. The section
// must exist (REFERENTIAL_INVALID rejects the whole call otherwise) and be
// active. Eligibility is recomputed here, never taken from a caller
// snapshot, and the store's uniqueness index has the final word: a
// concurrent winner surfaces as a per-student conflict while the rest of
// the batch proceeds.
func (s *EnrollmentService) EnrollStudents(ctx context.Context, req EnrollStudentsRequest, actor models.Identity) ([]models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "target section does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !section.IsActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "target section is inactive")
	}

	if err := s.authorizeScope(ctx, section.GradeID, actor); err != nil {
		return nil, err
	}

	scope := models.SectionScope{
		GradeID:           section.GradeID,
		SchoolID:          section.SchoolID,
		AcademicSessionID: section.AcademicSessionID,
	}
	eligible, err := s.ListEligible(ctx, scope)
	if err != nil {
		return nil, err
	}
	eligibleSet := make(map[string]struct{}, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = struct{}{}
	}

	// Results keep the caller's row order. A student id repeated within the
	// batch only gets one insert; the repeats report a conflict so the
	// committed row is never misreported as failed.
	results := make([]models.EnrollmentResult, len(req.StudentIDs))
	slot := make(map[string]int, len(req.StudentIDs))
	var toInsert []*models.SectionEnrollment
	for i, studentID := range req.StudentIDs {
		if _, dup := slot[studentID]; dup {
			results[i] = models.EnrollmentResult{StudentID: studentID, OK: false, Reason: models.ReasonConflict}
			continue
		}
		slot[studentID] = i
		if _, ok := eligibleSet[studentID]; !ok {
			results[i] = models.EnrollmentResult{StudentID: studentID, OK: false, Reason: models.ReasonNotEligible}
			continue
		}
		toInsert = append(toInsert, &models.SectionEnrollment{
			StudentID:         studentID,
			SectionID:         section.ID,
			GradeID:           section.GradeID,
			AcademicSessionID: section.AcademicSessionID,
			Status:            models.EnrollmentStatusActive,
			EnrolledBy:        actor.UserID,
		})
	}

	inserted, err := s.enrollments.InsertActiveBatch(ctx, toInsert)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write enrollments")
	}

	for _, enrollment := range toInsert {
		i := slot[enrollment.StudentID]
		if inserted[enrollment.StudentID] {
			results[i] = models.EnrollmentResult{
				StudentID:    enrollment.StudentID,
				OK:           true,
				Reason:       models.ReasonEnrolled,
				EnrollmentID: enrollment.ID,
			}
			continue
		}
		// Another actor won the race between our eligibility read and the
		// write; the index rejected the row.
		results[i] = models.EnrollmentResult{StudentID: enrollment.StudentID, OK: false, Reason: models.ReasonConflict}
	}
	return results, nil
}

// Transfer marks the source enrollment transferred and creates the
// destination placement as one unit of work. A failed destination step
// rolls back the source marking; the caller never observes a student with
// no active placement because of a half-applied transfer.
func (s *EnrollmentService) Transfer(ctx context.Context, enrollmentID string, req TransferRequest, actor models.Identity) (*models.SectionEnrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}

	source, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if source.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}
	if source.SectionID == req.NewSectionID {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "already placed in target section")
	}

	dest, err := s.sections.FindByID(ctx, req.NewSectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "target section does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target section")
	}
	if !dest.IsActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "target section is inactive")
	}

	if err := s.authorizeScope(ctx, dest.GradeID, actor); err != nil {
		return nil, err
	}

	// The destination placement needs fresh eligibility just like a batch
	// enrollment: an active admission to the destination grade. A transfer
	// within the same grade carries the admission over; a cross-grade
	// transfer, or one after the admission was deactivated, does not.
	admitted, err := s.admissions.ListActiveStudentIDsByGrade(ctx, dest.GradeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admitted students")
	}
	isAdmitted := false
	for _, id := range admitted {
		if id == source.StudentID {
			isAdmitted = true
			break
		}
	}
	if !isAdmitted {
		return nil, appErrors.Clone(appErrors.ErrEligibilityConflict, "student holds no active admission to the target grade")
	}

	destination := &models.SectionEnrollment{
		StudentID:         source.StudentID,
		SectionID:         dest.ID,
		GradeID:           dest.GradeID,
		AcademicSessionID: dest.AcademicSessionID,
		Status:            models.EnrollmentStatusActive,
		EnrolledBy:        actor.UserID,
	}

	if err := s.enrollments.Transfer(ctx, source.ID, destination); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateActive):
			return nil, appErrors.Clone(appErrors.ErrTransferFailed, "student already holds an active placement in the target scope")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to transfer enrollment")
	}

	return destination, nil
}

// Withdraw marks an active enrollment withdrawn. The student's grade
// admission is deliberately untouched: withdrawing from a section does not
// withdraw from the grade.
func (s *EnrollmentService) Withdraw(ctx context.Context, enrollmentID string, actor models.Identity) (*models.SectionEnrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
	}

	if err := s.authorizeScope(ctx, enrollment.GradeID, actor); err != nil {
		return nil, err
	}

	if err := s.enrollments.Withdraw(ctx, enrollment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment changed concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}

	updated, err := s.enrollments.FindByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}
	return updated, nil
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.SectionEnrollment, *models.Pagination, error) {
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Roster returns the active enrollments of a section.
func (s *EnrollmentService) Roster(ctx context.Context, sectionID string) ([]models.SectionEnrollment, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	roster, err := s.enrollments.ListActiveBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

// authorizeScope denies actors operating outside their tenant. Superadmins
// pass everywhere; scoped roles must own the grade's tenant.
func (s *EnrollmentService) authorizeScope(ctx context.Context, gradeID string, actor models.Identity) error {
	if !actor.Resolved() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "identity not resolved")
	}
	if actor.Superadmin() {
		return nil
	}
	grade, err := s.grades.FindByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrReferentialInvalid, "grade does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if !actor.InTenant(grade.TenantID) {
		return appErrors.Clone(appErrors.ErrForbidden, "grade belongs to another tenant")
	}
	return nil
}
