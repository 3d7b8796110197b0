package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID string
	Role   string
}

// Context keys for storing authenticated caller information.
type contextKeyUserID struct{}
type contextKeyRole struct{}

var (
	ContextKeyUserID = contextKeyUserID{}
	ContextKeyRole   = contextKeyRole{}
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetRole retrieves the authenticated caller's role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved identity in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on the role stored by RequireAuth. Used for the
// administrative surface, which is never exposed to ordinary callers.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if GetRole(ctx) != role {
				logger.WarnContext(ctx, "forbidden - role mismatch",
					"required_role", role,
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
