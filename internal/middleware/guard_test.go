package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
	"github.com/noah-isme/edu-platform-api/pkg/response"
)

func guardedRouter(identity models.Identity, required ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextIdentityKey, identity)
		c.Next()
	})
	router.GET("/", Authorize(required...), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope response.Envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if envelope.Error == nil {
		t.Fatal("expected error in envelope")
	}
	return envelope.Error.Code
}

func TestAuthorizeGrantsMatchingRole(t *testing.T) {
	tenantID := "tenant-1"
	identity := models.Identity{State: models.IdentityResolved, UserID: "u1", Role: models.RoleSchoolAdmin, TenantID: &tenantID}
	recorder := httptest.NewRecorder()
	guardedRouter(identity, models.RoleSchoolAdmin).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAuthorizeSuperadminPassesScopedRoutes(t *testing.T) {
	identity := models.Identity{State: models.IdentityResolved, UserID: "u1", Role: models.RoleSuperAdmin}
	recorder := httptest.NewRecorder()
	guardedRouter(identity, models.RoleTenantAdmin).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestAuthorizeRejectsUnauthenticated(t *testing.T) {
	recorder := httptest.NewRecorder()
	guardedRouter(models.Unauthenticated(), models.RoleTeacher).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if code := errorCode(t, recorder); code != appErrors.ErrUnauthorized.Code {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestAuthorizeRoutesIncompleteProfile(t *testing.T) {
	identity := models.Identity{State: models.IdentityIncomplete, UserID: "u1"}
	recorder := httptest.NewRecorder()
	guardedRouter(identity, models.RoleTeacher).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if code := errorCode(t, recorder); code != appErrors.ErrProfileIncomplete.Code {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestAuthorizeDeniesInsufficientRole(t *testing.T) {
	tenantID := "tenant-1"
	identity := models.Identity{State: models.IdentityResolved, UserID: "u1", Role: models.RoleStudent, TenantID: &tenantID}
	recorder := httptest.NewRecorder()
	guardedRouter(identity, models.RoleTenantAdmin).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if code := errorCode(t, recorder); code != appErrors.ErrForbidden.Code {
		t.Fatalf("unexpected error code: %s", code)
	}
}

func TestAuthorizeOpenRouteStillRequiresResolution(t *testing.T) {
	recorder := httptest.NewRecorder()
	guardedRouter(models.Unauthenticated()).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestIdentityFromDefaultsToUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	if identity := IdentityFrom(c); identity.State != models.IdentityUnauthenticated {
		t.Fatalf("unexpected state: %s", identity.State)
	}
}
