package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"dressline/internal/appmode"
	"dressline/internal/auth"
	"dressline/internal/domain"
	"dressline/internal/httputil"
)

// RequireToken validates the bearer token against verifier and stores the
// claims in the request context. A nil verifier lets every request through.
func RequireToken(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, domain.ErrForbidden) {
					httputil.RespondError(w, http.StatusForbidden, "admin role required")
					return
				}
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithAdminClaims(r, claims))
		})
	}
}

// RequireAdminMode rejects requests while the instance is in reader mode
func RequireAdminMode(state *appmode.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !state.IsAdmin() {
				httputil.RespondError(w, http.StatusForbidden, "editing is disabled in reader mode")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin combines the token check with the mode check
func RequireAdmin(state *appmode.State, verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	token := RequireToken(verifier, logger)
	mode := RequireAdminMode(state)
	return func(next http.Handler) http.Handler {
		return token(mode(next))
	}
}
