package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/edu-platform-api/internal/models"
)

func TestGuardStaysLoadingUntilSettled(t *testing.T) {
	guard := NewGuard(models.RoleSchoolAdmin)

	// Even an unauthenticated identity must not trigger a redirect while
	// resolution is still in flight.
	assert.Equal(t, DecisionLoading, guard.Evaluate(models.Unauthenticated(), false))
	assert.Equal(t, DecisionLoading, guard.Evaluate(resolved(models.RoleSchoolAdmin), false))
}

func TestGuardRedirectLogin(t *testing.T) {
	guard := NewGuard(models.RoleSchoolAdmin)
	assert.Equal(t, DecisionRedirectLogin, guard.Evaluate(models.Unauthenticated(), true))
}

func TestGuardRedirectProfile(t *testing.T) {
	guard := NewGuard(models.RoleSchoolAdmin)
	incomplete := models.Identity{State: models.IdentityIncomplete, UserID: "u1"}
	assert.Equal(t, DecisionRedirectProfile, guard.Evaluate(incomplete, true))
}

func TestGuardAuthorized(t *testing.T) {
	guard := NewGuard(models.RoleSchoolAdmin)
	assert.Equal(t, DecisionAuthorized, guard.Evaluate(resolved(models.RoleSchoolAdmin), true))
	assert.Equal(t, DecisionAuthorized, guard.Evaluate(resolved(models.RoleSuperAdmin), true))
}

func TestGuardDenied(t *testing.T) {
	guard := NewGuard(models.RoleSchoolAdmin)
	assert.Equal(t, DecisionRedirectDenied, guard.Evaluate(resolved(models.RoleTeacher), true))
}

func TestGuardOpenRoute(t *testing.T) {
	guard := NewGuard()
	assert.Equal(t, DecisionAuthorized, guard.Evaluate(resolved(models.RoleParent), true))
	assert.Equal(t, DecisionRedirectLogin, guard.Evaluate(models.Unauthenticated(), true))
}
