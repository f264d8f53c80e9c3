package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ahmedmiske/tabaro-sub002/internal/auth"

	"github.com/gorilla/mux"
)

// contextKey is a private type for context values to avoid key collisions.
type contextKey string

// UserIDKey is the context key for the authenticated user's ID.
const UserIDKey contextKey = "userID"

// UsernameKey is the context key for the authenticated user's username.
const UsernameKey contextKey = "username"

// RoleKey is the context key for the authenticated user's role.
const RoleKey contextKey = "role"

// AuthMiddleware validates the Bearer JWT on every request and stores the
// server-asserted identity (user id, username, role) in the request context.
// Handlers must use this identity for every ownership check.
func AuthMiddleware(jwtKey string, blacklist auth.TokenBlacklist) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization token", http.StatusUnauthorized)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				http.Error(w, "invalid authorization header, expected Bearer {token}", http.StatusUnauthorized)
				return
			}

			tokenString := headerParts[1]
			claims, err := auth.ValidateToken(r.Context(), tokenString, jwtKey, blacklist)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, UsernameKey, claims.Username)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext returns the authenticated user's ID from the context.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetUsernameFromContext returns the authenticated username from the context.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetRoleFromContext returns the authenticated role from the context.
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
