package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type stubRevoker struct {
	revoked map[string]bool
}

func (s *stubRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked[jti], nil
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticatePopulatesContext(t *testing.T) {
	userID := uuid.New()
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "admin@fitfoco.com.br",
		"role":    "admin",
		"jti":     "token-1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	mw := NewAuthMiddleware(testSecret, nil)

	var gotID uuid.UUID
	var gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserIDFromContext(r.Context())
		gotRole, _ = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "admin", gotRole)
}

func TestAuthenticateRejectsMissingHeader(t *testing.T) {
	mw := NewAuthMiddleware(testSecret, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsWrongSignature(t *testing.T) {
	tokenString := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	mw := NewAuthMiddleware(testSecret, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateRejectsRevokedToken(t *testing.T) {
	tokenString := signToken(t, testSecret, jwt.MapClaims{
		"user_id": uuid.New().String(),
		"jti":     "revoked-token",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	mw := NewAuthMiddleware(testSecret, &stubRevoker{revoked: map[string]bool{"revoked-token": true}})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()
	mw.Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleForbidsMismatch(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guard := RequireRole("admin")(next)

	req := httptest.NewRequest("GET", "/", nil)
	ctx := context.WithValue(req.Context(), ctxRoleKey, "cliente")
	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	ctx = context.WithValue(req.Context(), ctxRoleKey, "admin")
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}
