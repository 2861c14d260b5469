package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail    *models.User
	userByID       *models.User
	findByEmailErr error
	findByIDErr    error
	refreshTokens  map[string]*models.RefreshToken
	auditLogs      []*models.AuditLog
	revokedAll     bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		return stored, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, stored := range m.refreshTokens {
		if stored.ID == id {
			stored.Revoked = true
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "test",
	}
}

func activeUser(role *models.Role) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	tenantID := "tenant-1"
	return &models.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         role,
		TenantID:     &tenantID,
		Active:       true,
	}
}

func TestLoginIssuesTokensAndIdentity(t *testing.T) {
	role := models.RoleTenantAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.IdentityResolved, res.Identity.State)
	assert.Equal(t, models.RoleTenantAdmin, res.Identity.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	role := models.RoleTenantAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{findByEmailErr: sql.ErrNoRows}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	role := models.RoleTenantAdmin
	user := activeUser(&role)
	user.Active = false
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	role := models.RoleTenantAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// The used token is revoked; replaying it fails.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestResolveIdentityResolvedUser(t *testing.T) {
	role := models.RoleSchoolAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)

	identity := svc.ResolveIdentity(context.Background(), login.AccessToken)
	assert.Equal(t, models.IdentityResolved, identity.State)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, models.RoleSchoolAdmin, identity.Role)
}

func TestResolveIdentityRoleChangeTakesEffect(t *testing.T) {
	// Tokens carry no role; a profile change between requests shows up on
	// the very next resolution.
	role := models.RoleTeacher
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)

	newRole := models.RoleSchoolAdmin
	repo.userByEmail.Role = &newRole

	identity := svc.ResolveIdentity(context.Background(), login.AccessToken)
	assert.Equal(t, models.RoleSchoolAdmin, identity.Role)
}

func TestResolveIdentityIncompleteProfile(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(nil)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.IdentityIncomplete, login.Identity.State)

	identity := svc.ResolveIdentity(context.Background(), login.AccessToken)
	assert.Equal(t, models.IdentityIncomplete, identity.State)
	assert.Equal(t, "user-1", identity.UserID)
}

func TestResolveIdentityInvalidToken(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	identity := svc.ResolveIdentity(context.Background(), "garbage")
	assert.Equal(t, models.IdentityUnauthenticated, identity.State)
}

func TestResolveIdentityFailedLookupIsUnauthenticated(t *testing.T) {
	// A lookup failure must never serve a stale or guessed identity.
	role := models.RoleTenantAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "secret123"})
	require.NoError(t, err)

	repo.findByIDErr = errors.New("connection reset")
	identity := svc.ResolveIdentity(context.Background(), login.AccessToken)
	assert.Equal(t, models.IdentityUnauthenticated, identity.State)
}

func TestLogoutRevokesSessions(t *testing.T) {
	role := models.RoleTenantAdmin
	repo := &mockAuthRepo{userByEmail: activeUser(&role)}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	assert.True(t, repo.revokedAll)
}
