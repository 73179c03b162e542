package httputil

import (
	"context"
	"net/http"

	"dressline/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	adminClaimsKey contextKey = "adminClaims"
)

// WithAdminClaims adds verified token claims to the request context
func WithAdminClaims(r *http.Request, claims *models.AdminClaims) *http.Request {
	ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
	return r.WithContext(ctx)
}

// GetAdminClaims retrieves the claims from context, nil when the request was not token-checked
func GetAdminClaims(r *http.Request) *models.AdminClaims {
	claims, _ := r.Context().Value(adminClaimsKey).(*models.AdminClaims)
	return claims
}

// GetUserID returns the token subject, or an empty string
func GetUserID(r *http.Request) string {
	if claims := GetAdminClaims(r); claims != nil {
		return claims.GetUserID()
	}
	return ""
}
