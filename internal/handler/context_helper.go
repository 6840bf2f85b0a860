package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/or-scheduler-api/internal/middleware"
	"github.com/noah-isme/or-scheduler-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}
