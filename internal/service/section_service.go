package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	ListByScope(ctx context.Context, scope models.SectionScope) ([]models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	SetActive(ctx context.Context, id string, active bool) error
}

type schoolReader interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

type sessionReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicSession, error)
}

// CreateSectionRequest captures section creation payload.
type CreateSectionRequest struct {
	GradeID           string `json:"grade_id" validate:"required"`
	SchoolID          string `json:"school_id" validate:"required"`
	AcademicSessionID string `json:"academic_session_id" validate:"required"`
	Name              string `json:"name" validate:"required"`
}

// SectionService coordinates section operations. A section binds a grade,
// a school and an academic session of the same tenant; creation rejects
// mixed-tenant triples. Scope listings are cached when a cache service is
// attached; mutations invalidate the whole section keyspace.
type SectionService struct {
	repo      sectionRepository
	grades    gradeReader
	schools   schoolReader
	sessions  sessionReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, grades gradeReader, schools schoolReader, sessions sessionReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, grades: grades, schools: schools, sessions: sessions, cache: cache, validator: validate, logger: logger}
}

// List returns sections matching the filter with pagination metadata.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a section by id.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// ListByScope returns the sections of a (grade, school, session) triple.
// An empty scope yields an empty list.
func (s *SectionService) ListByScope(ctx context.Context, scope models.SectionScope) ([]models.Section, error) {
	if scope.Empty() {
		return []models.Section{}, nil
	}

	cacheKey := fmt.Sprintf("sections:scope:%s:%s:%s", scope.GradeID, scope.SchoolID, scope.AcademicSessionID)
	var cached []models.Section
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	sections, err := s.repo.ListByScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	if sections == nil {
		sections = []models.Section{}
	}
	_ = s.cache.Set(ctx, cacheKey, sections, 0)
	return sections, nil
}

// Create adds a section after verifying all three parents exist and share
// one tenant.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	grade, err := s.grades.FindByID(ctx, req.GradeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "grade does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	school, err := s.schools.FindByID(ctx, req.SchoolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "school does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	session, err := s.sessions.FindByID(ctx, req.AcademicSessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "academic session does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if school.TenantID != grade.TenantID || session.TenantID != grade.TenantID {
		return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "grade, school and session must belong to one tenant")
	}

	section := &models.Section{
		GradeID:           req.GradeID,
		SchoolID:          req.SchoolID,
		AcademicSessionID: req.AcademicSessionID,
		Name:              req.Name,
		IsActive:          true,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	_ = s.cache.Invalidate(ctx, "sections:*")
	return section, nil
}

// SetActive toggles a section's active flag. Deactivating a section does
// not touch its enrollments; it only blocks new placements and transfers
// into it.
func (s *SectionService) SetActive(ctx context.Context, id string, active bool) (*models.Section, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload section")
	}
	_ = s.cache.Invalidate(ctx, "sections:*")
	s.logger.Info("section toggled", zap.String("section_id", id), zap.Bool("active", active))
	return section, nil
}
