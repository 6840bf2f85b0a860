package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates roles carried by access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleScheduler UserRole = "SCHEDULER"
	RoleSurgeon   UserRole = "SURGEON"
	RoleViewer    UserRole = "VIEWER"
)

// JWTClaims represents the JWT payload for access tokens issued by the hospital identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination describes paging metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// Principal identifies the caller in logs, preferring the user ID over the token subject.
func (c *JWTClaims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// HasRole reports whether the claims carry one of roles.
func (c *JWTClaims) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
