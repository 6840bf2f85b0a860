package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/logger"
	"github.com/noah-isme/or-scheduler-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims. The request logger
// reads the same key.
const ContextUserKey = logger.ContextUserKey

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			msg := "invalid authorization header"
			if c.GetHeader("Authorization") == "" {
				msg = "missing bearer token"
			}
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, msg))
			c.Abort()
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// OptionalJWT attaches claims when present but does not block.
func OptionalJWT(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if claims, err := tokens.Validate(token); err == nil {
				c.Set(ContextUserKey, claims)
			}
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// CurrentClaims returns the claims stored by JWT, if any.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.JWTClaims)
	return claims, ok && claims != nil
}
