package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type userAdminRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	AssignRole(ctx context.Context, id string, role models.Role, tenantID, schoolID *string) error
}

// AssignRoleRequest completes or changes a user's profile.
type AssignRoleRequest struct {
	Role     models.Role `json:"role" validate:"required"`
	TenantID *string     `json:"tenant_id,omitempty"`
	SchoolID *string     `json:"school_id,omitempty"`
}

// UserService handles profile administration. Assigning a role is what
// moves an incomplete profile to a resolvable identity; the change takes
// effect on the user's next request because identities are re-read from
// the store every time.
type UserService struct {
	repo      userAdminRepository
	tenants   tenantReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs UserService.
func NewUserService(repo userAdminRepository, tenants tenantReader, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, tenants: tenants, validator: validate, logger: logger}
}

// AssignRole sets a user's role and scope. Superadmins may assign any
// role; tenant admins may assign scoped roles inside their own tenant
// only. SUPERADMIN itself can only be granted by another superadmin.
func (s *UserService) AssignRole(ctx context.Context, userID string, req AssignRoleRequest, actor models.Identity) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if !actor.Resolved() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}

	switch {
	case actor.Superadmin():
		// any assignment allowed
	case actor.Role == models.RoleTenantAdmin:
		if req.Role == models.RoleSuperAdmin || req.Role == models.RoleTenantAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot grant this role")
		}
		if req.TenantID == nil || actor.TenantID == nil || *req.TenantID != *actor.TenantID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "role assignments are limited to your tenant")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if req.Role != models.RoleSuperAdmin {
		if req.TenantID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "tenant_id is required for scoped roles")
		}
		if _, err := s.tenants.FindByID(ctx, *req.TenantID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrReferentialInvalid, "tenant does not exist")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tenant")
		}
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := s.repo.AssignRole(ctx, userID, req.Role, req.TenantID, req.SchoolID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}

	role := req.Role
	user.Role = &role
	user.TenantID = req.TenantID
	user.SchoolID = req.SchoolID
	s.logger.Info("role assigned",
		zap.String("user_id", userID), zap.String("role", string(req.Role)), zap.String("actor_id", actor.UserID))
	return user, nil
}
