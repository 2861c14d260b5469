package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-platform-api/internal/middleware"
	"github.com/noah-isme/edu-platform-api/internal/models"
)

func identityFromContext(c *gin.Context) models.Identity {
	return middleware.IdentityFrom(c)
}
