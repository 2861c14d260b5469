package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type admissionRepository interface {
	List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentAdmission, error)
	Create(ctx context.Context, admission *models.StudentAdmission) error
	UpdateStatus(ctx context.Context, id string, status models.AdmissionStatus) error
	ExistsActiveOrPending(ctx context.Context, studentID, gradeID string) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateAdmissionRequest admits a student to a grade.
type CreateAdmissionRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	GradeID   string `json:"grade_id" validate:"required"`
}

// AdmissionService manages the admission ledger. An admission is the
// student's right to be placed in some section of a grade; it precedes
// and outlives any individual section placement.
type AdmissionService struct {
	repo      admissionRepository
	students  studentReader
	grades    gradeReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAdmissionService constructs AdmissionService.
func NewAdmissionService(repo admissionRepository, students studentReader, grades gradeReader, validate *validator.Validate, logger *zap.Logger) *AdmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionService{repo: repo, students: students, grades: grades, validator: validate, logger: logger}
}

// List returns admissions with pagination metadata.
func (s *AdmissionService) List(ctx context.Context, filter models.AdmissionFilter) ([]models.StudentAdmission, *models.Pagination, error) {
	admissions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list admissions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return admissions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an admission by id.
func (s *AdmissionService) Get(ctx context.Context, id string) (*models.StudentAdmission, error) {
	admission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "admission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admission")
	}
	return admission, nil
}

// Create records a new admission in PENDING state. Student and grade must
// exist, belong to the same tenant, and the student may not already hold
// a pending or active admission for the grade.
func (s *AdmissionService) Create(ctx context.Context, req CreateAdmissionRequest, actor models.Identity) (*models.StudentAdmission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid admission payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "student does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is inactive")
	}

	grade, err := s.grades.FindByID(ctx, req.GradeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "grade does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	if student.TenantID != grade.TenantID {
		return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "student and grade must belong to one tenant")
	}

	exists, err := s.repo.ExistsActiveOrPending(ctx, req.StudentID, req.GradeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing admissions")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already admitted to this grade")
	}

	admission := &models.StudentAdmission{
		StudentID:  req.StudentID,
		GradeID:    req.GradeID,
		Status:     models.AdmissionStatusPending,
		AdmittedBy: actor.UserID,
	}
	if err := s.repo.Create(ctx, admission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create admission")
	}
	return admission, nil
}

// Activate moves a PENDING admission to ACTIVE, making the student
// eligible for section placement.
func (s *AdmissionService) Activate(ctx context.Context, id string) (*models.StudentAdmission, error) {
	admission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if admission.Status != models.AdmissionStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "admission is not pending")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.AdmissionStatusActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate admission")
	}
	admission.Status = models.AdmissionStatusActive
	return admission, nil
}

// Deactivate retires an admission. Existing section enrollments are left
// alone; the student merely drops out of the eligible set for the grade.
func (s *AdmissionService) Deactivate(ctx context.Context, id string) (*models.StudentAdmission, error) {
	admission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if admission.Status == models.AdmissionStatusInactive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "admission is already inactive")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.AdmissionStatusInactive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate admission")
	}
	admission.Status = models.AdmissionStatusInactive
	return admission, nil
}
