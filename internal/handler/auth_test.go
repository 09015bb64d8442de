package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitfoco/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeReturnsTokenIdentity(t *testing.T) {
	const secret = "me-test-secret"
	userID := uuid.New()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"email":   "ana@fitfoco.com.br",
		"role":    "cliente",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	h := &AuthHandler{}
	mw := middleware.NewAuthMiddleware(secret, nil)
	wrapped := mw.Authenticate(http.HandlerFunc(h.Me))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, userID.String(), resp["user_id"])
	assert.Equal(t, "ana@fitfoco.com.br", resp["email"])
	assert.Equal(t, "cliente", resp["role"])
}

func TestMeWithoutAuthContext(t *testing.T) {
	h := &AuthHandler{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
