package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/luckynumbers/api/internal/models"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

// AdminContextKey is the key under which validated claims are stored.
const AdminContextKey contextKey = "admin"

// Protect gates a route behind a valid bearer session token. On success the
// resolved claims are attached to the request context.
func Protect(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
				return
			}

			claims, err := tm.Validate(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
				return
			}

			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminFromContext extracts validated claims from the request context.
func GetAdminFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(AdminContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}
