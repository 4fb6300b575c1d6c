package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/collegesync/collegesync-api/internal/middleware"
	"github.com/collegesync/collegesync-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func viewerFromContext(c *gin.Context) (models.Viewer, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Viewer{}, false
	}
	return claims.Viewer(), true
}
