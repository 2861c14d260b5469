package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/authz"
	"github.com/noah-isme/edu-platform-api/internal/models"
	appErrors "github.com/noah-isme/edu-platform-api/pkg/errors"
	"github.com/noah-isme/edu-platform-api/pkg/response"
)

// Authorize gates a route on the caller's role. By the time a request gets
// here the identity middleware has settled resolution, so the guard never
// reports LOADING. Unauthenticated callers get 401, role-less profiles get
// 403 with a distinct code, and insufficient roles get a terminal 403.
func Authorize(required ...models.Role) gin.HandlerFunc {
	guard := authz.NewGuard(required...)
	return func(c *gin.Context) {
		identity := IdentityFrom(c)

		switch guard.Evaluate(identity, true) {
		case authz.DecisionAuthorized:
			c.Next()
		case authz.DecisionRedirectLogin:
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
		case authz.DecisionRedirectProfile:
			response.Error(c, appErrors.ErrProfileIncomplete)
			c.Abort()
		default:
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
		}
	}
}
