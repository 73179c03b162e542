package auth

import "dressline/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The admin middleware stays agnostic to how keys are obtained.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or not an admin token.
	VerifyToken(tokenString string) (*models.AdminClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
