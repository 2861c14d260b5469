package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type mockUserAdminRepo struct {
	users    map[string]*models.User
	assigned map[string]models.Role
}

func (m *mockUserAdminRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserAdminRepo) AssignRole(ctx context.Context, id string, role models.Role, tenantID, schoolID *string) error {
	if m.assigned == nil {
		m.assigned = make(map[string]models.Role)
	}
	m.assigned[id] = role
	return nil
}

type mockTenantReader struct {
	tenants map[string]*models.Tenant
}

func (m *mockTenantReader) FindByID(ctx context.Context, id string) (*models.Tenant, error) {
	if t, ok := m.tenants[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func userFixture() (*UserService, *mockUserAdminRepo) {
	repo := &mockUserAdminRepo{users: map[string]*models.User{
		"user-new": {ID: "user-new", Email: "new@example.com", Active: true},
	}}
	tenants := &mockTenantReader{tenants: map[string]*models.Tenant{
		"tenant-1": {ID: "tenant-1", Name: "North District"},
	}}
	return NewUserService(repo, tenants, nil, zap.NewNop()), repo
}

func strPtr(s string) *string { return &s }

func TestAssignRoleCompletesProfile(t *testing.T) {
	svc, repo := userFixture()
	actor := models.Identity{State: models.IdentityResolved, UserID: "root", Role: models.RoleSuperAdmin}

	user, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{
		Role:     models.RoleTeacher,
		TenantID: strPtr("tenant-1"),
	}, actor)
	require.NoError(t, err)
	require.NotNil(t, user.Role)
	assert.Equal(t, models.RoleTeacher, *user.Role)
	assert.Equal(t, models.RoleTeacher, repo.assigned["user-new"])
}

func TestAssignRoleTenantAdminLimitedToOwnTenant(t *testing.T) {
	svc, _ := userFixture()
	actorTenant := "tenant-1"
	actor := models.Identity{State: models.IdentityResolved, UserID: "adm", Role: models.RoleTenantAdmin, TenantID: &actorTenant}

	_, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{
		Role:     models.RoleTeacher,
		TenantID: strPtr("tenant-other"),
	}, actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	user, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{
		Role:     models.RoleStaff,
		TenantID: strPtr("tenant-1"),
	}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, *user.Role)
}

func TestAssignRoleTenantAdminCannotGrantAdminRoles(t *testing.T) {
	svc, _ := userFixture()
	actorTenant := "tenant-1"
	actor := models.Identity{State: models.IdentityResolved, UserID: "adm", Role: models.RoleTenantAdmin, TenantID: &actorTenant}

	for _, role := range []models.Role{models.RoleSuperAdmin, models.RoleTenantAdmin} {
		_, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{
			Role:     role,
			TenantID: strPtr("tenant-1"),
		}, actor)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	}
}

func TestAssignRoleRequiresTenantForScopedRoles(t *testing.T) {
	svc, _ := userFixture()
	actor := models.Identity{State: models.IdentityResolved, UserID: "root", Role: models.RoleSuperAdmin}

	_, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{Role: models.RoleTeacher}, actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignRoleUnknownTenantRejected(t *testing.T) {
	svc, _ := userFixture()
	actor := models.Identity{State: models.IdentityResolved, UserID: "root", Role: models.RoleSuperAdmin}

	_, err := svc.AssignRole(context.Background(), "user-new", AssignRoleRequest{
		Role:     models.RoleTeacher,
		TenantID: strPtr("tenant-missing"),
	}, actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrReferentialInvalid.Code, appErrors.FromError(err).Code)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	svc, _ := userFixture()
	actor := models.Identity{State: models.IdentityResolved, UserID: "root", Role: models.RoleSuperAdmin}

	_, err := svc.AssignRole(context.Background(), "user-missing", AssignRoleRequest{
		Role:     models.RoleTeacher,
		TenantID: strPtr("tenant-1"),
	}, actor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
