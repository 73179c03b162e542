package models

import "github.com/golang-jwt/jwt/v5"

// AdminClaims is the JWT claims structure accepted on admin routes.
type AdminClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AdminRole is the role claim value that grants write access.
const AdminRole = "admin"

// GetUserID returns the user ID from the JWT subject claim.
func (c *AdminClaims) GetUserID() string {
	return c.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *AdminClaims) IsAdmin() bool {
	return c.Role == AdminRole
}
