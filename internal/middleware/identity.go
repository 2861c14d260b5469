package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/models"
	"github.com/noah-isme/edu-platform-api/internal/service"
)

// ContextIdentityKey is the gin context key storing the resolved identity.
const ContextIdentityKey = "identity"

// Identity resolves the bearer token into an identity and stores it on the
// context. It never aborts; every request leaves here with a settled
// identity (possibly UNAUTHENTICATED) and the guard decides what that
// means for the route.
func Identity(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := models.Unauthenticated()

		header := c.GetHeader("Authorization")
		if header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				identity = authService.ResolveIdentity(c.Request.Context(), parts[1])
			}
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the identity stored on the context, or the
// unauthenticated identity when resolution never ran.
func IdentityFrom(c *gin.Context) models.Identity {
	if value, exists := c.Get(ContextIdentityKey); exists {
		if identity, ok := value.(models.Identity); ok {
			return identity
		}
	}
	return models.Unauthenticated()
}
