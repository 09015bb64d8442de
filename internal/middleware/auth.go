// Package middleware hosts authentication, logging, and recovery middleware.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const (
	ctxUserIDKey  contextKey = "user_id"
	ctxEmailKey   contextKey = "email"
	ctxRoleKey    contextKey = "role"
	ctxTokenIDKey contextKey = "jti"
)

// TokenRevoker reports whether a token id has been revoked by logout.
type TokenRevoker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware validates bearer JWTs and injects user identity into the
// request context.
type AuthMiddleware struct {
	jwtSecret string
	revoker   TokenRevoker
}

// NewAuthMiddleware constructs an AuthMiddleware. revoker may be nil, in
// which case revocation is not enforced.
func NewAuthMiddleware(secret string, revoker TokenRevoker) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: secret, revoker: revoker}
}

// Authenticate enforces bearer auth and populates user details on the
// request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			jsonError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			jsonError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}
		tokenString := parts[1]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.jwtSecret), nil
		})

		if err != nil || !token.Valid {
			jsonError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				jsonError(w, http.StatusUnauthorized, "Token expired")
				return
			}
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Invalid user ID in token")
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid user ID format")
			return
		}

		ctx := r.Context()
		if jti, ok := claims["jti"].(string); ok {
			if m.revoker != nil {
				revoked, err := m.revoker.IsRevoked(ctx, jti)
				if err == nil && revoked {
					jsonError(w, http.StatusUnauthorized, "Token revoked")
					return
				}
			}
			ctx = context.WithValue(ctx, ctxTokenIDKey, jti)
		}

		ctx = context.WithValue(ctx, ctxUserIDKey, userID)
		if email, ok := claims["email"].(string); ok {
			ctx = context.WithValue(ctx, ctxEmailKey, email)
		}
		if role, ok := claims["role"].(string); ok {
			ctx = context.WithValue(ctx, ctxRoleKey, role)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user's UUID from context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v := ctx.Value(ctxUserIDKey)
	id, ok := v.(uuid.UUID)
	return id, ok
}

// EmailFromContext returns the authenticated user's email from context.
func EmailFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxEmailKey)
	s, ok := v.(string)
	return s, ok
}

// RoleFromContext returns the authenticated user's role from context.
func RoleFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxRoleKey)
	s, ok := v.(string)
	return s, ok
}

// TokenIDFromContext returns the token's jti claim from context.
func TokenIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxTokenIDKey)
	s, ok := v.(string)
	return s, ok
}
