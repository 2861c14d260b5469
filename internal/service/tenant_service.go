package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type tenantRepository interface {
	List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, int, error)
	FindByID(ctx context.Context, id string) (*models.Tenant, error)
	Create(ctx context.Context, tenant *models.Tenant) error
	Update(ctx context.Context, tenant *models.Tenant) error
	DeleteCascade(ctx context.Context, id string) error
}

// CreateTenantRequest captures tenant creation payload.
type CreateTenantRequest struct {
	Name       string  `json:"name" validate:"required"`
	AdminName  *string `json:"admin_name"`
	AdminEmail *string `json:"admin_email" validate:"omitempty,email"`
	AdminPhone *string `json:"admin_phone"`
}

// UpdateTenantRequest modifies tenant fields.
type UpdateTenantRequest struct {
	Name       string  `json:"name" validate:"required"`
	AdminName  *string `json:"admin_name"`
	AdminEmail *string `json:"admin_email" validate:"omitempty,email"`
	AdminPhone *string `json:"admin_phone"`
}

// TenantService coordinates tenant operations. Only superadmins reach it;
// the route guard enforces that upstream.
type TenantService struct {
	repo      tenantRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTenantService constructs TenantService.
func NewTenantService(repo tenantRepository, validate *validator.Validate, logger *zap.Logger) *TenantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{repo: repo, validator: validate, logger: logger}
}

// List returns tenants with pagination metadata.
func (s *TenantService) List(ctx context.Context, filter models.TenantFilter) ([]models.Tenant, *models.Pagination, error) {
	tenants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tenants")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return tenants, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a tenant by id.
func (s *TenantService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}
	return tenant, nil
}

// Create adds a new tenant.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}

	tenant := &models.Tenant{
		Name:       req.Name,
		AdminName:  req.AdminName,
		AdminEmail: req.AdminEmail,
		AdminPhone: req.AdminPhone,
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tenant")
	}
	return tenant, nil
}

// Update modifies a tenant record.
func (s *TenantService) Update(ctx context.Context, id string, req UpdateTenantRequest) (*models.Tenant, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tenant payload")
	}

	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	tenant.Name = req.Name
	tenant.AdminName = req.AdminName
	tenant.AdminEmail = req.AdminEmail
	tenant.AdminPhone = req.AdminPhone

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tenant")
	}
	return tenant, nil
}

// Delete removes a tenant and everything beneath it: schools, grades,
// sessions, sections, students, admissions, enrollments and users. The
// store does this in a single transaction.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "tenant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
	}

	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete tenant")
	}
	s.logger.Info("tenant deleted", zap.String("tenant_id", id))
	return nil
}
