package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	internaljwt "chatforge-backend/internal/jwt"
)

// AdminCookieName holds the admin session token.
const AdminCookieName = "admin_session"

type userContextKey struct{}

// UserFromContext returns the identity stored by an auth middleware.
func UserFromContext(ctx context.Context) (internaljwt.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(internaljwt.User)
	return user, ok
}

func WithUser(ctx context.Context, user internaljwt.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// ValidateJWTMiddleware requires a bearer token signed for role and stores
// its user in the request context.
func ValidateJWTMiddleware(role internaljwt.Role) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w, "Unauthorized")
				return
			}

			user, err := internaljwt.ParseUser(token, role)
			if err != nil {
				unauthorized(w, "Unauthorized")
				return
			}

			next(w, r.WithContext(WithUser(r.Context(), user)))
		}
	}
}

// ValidateAdminSession requires the admin session cookie.
func ValidateAdminSession() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AdminCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w, "Admin authentication required.")
				return
			}

			user, err := internaljwt.ParseUser(cookie.Value, internaljwt.RoleAdmin)
			if err != nil {
				unauthorized(w, "Admin authentication required.")
				return
			}

			next(w, r.WithContext(WithUser(r.Context(), user)))
		}
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

var ValidateTenantJWT = ValidateJWTMiddleware(internaljwt.RoleTenant)
