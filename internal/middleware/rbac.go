package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

// RequireRoles lets the request through only when the JWT claims carry one of
// roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.HasRole(roles...) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" may not perform this action"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Guard bundles JWT and the role check. It returns no handlers when auth is
// disabled.
func Guard(enabled bool, tokens TokenValidator, roles ...models.UserRole) []gin.HandlerFunc {
	if !enabled || tokens == nil {
		return nil
	}
	return []gin.HandlerFunc{JWT(tokens), RequireRoles(roles...)}
}
