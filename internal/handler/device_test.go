package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitfoco/internal/device"
	"fitfoco/internal/domain"
	"fitfoco/internal/middleware"
	"fitfoco/internal/trust"
	"fitfoco/pkg/logger"
	"fitfoco/pkg/validator"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeviceRepo struct {
	mock.Mock
}

func (m *mockDeviceRepo) Upsert(ctx context.Context, d *domain.Device) (bool, error) {
	args := m.Called(ctx, d)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeviceRepo) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Device), args.Error(1)
}

type mockActivityRecorder struct {
	mock.Mock
}

func (m *mockActivityRecorder) RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

type mockBlacklist struct {
	mock.Mock
}

func (m *mockBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	args := m.Called(ctx, ip)
	return args.Bool(0), args.Error(1)
}

const deviceTestSecret = "device-test-secret"

func bearerFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "cliente",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(deviceTestSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func trackThrough(t *testing.T, repo *mockDeviceRepo, bl *mockBlacklist, body string, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	svc := device.NewService(repo, new(mockActivityRecorder), trust.NewScorer(bl), nil, logger.NewNop())
	h := NewDeviceHandler(svc, validator.New(), logger.NewNop())
	mw := middleware.NewAuthMiddleware(deviceTestSecret, nil)
	wrapped := mw.Authenticate(http.HandlerFunc(h.TrackDevice))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/track-device", bytes.NewBufferString(body))
	req.Header.Set("Authorization", bearerFor(t, uuid.New()))
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)
	return rec
}

func TestTrackDeviceRecordsClientSuppliedIP(t *testing.T) {
	repo := new(mockDeviceRepo)
	bl := new(mockBlacklist)

	// The app reports its own public IP; the recorded device must carry it,
	// not the proxy's connection address.
	bl.On("IsBlacklisted", mock.Anything, "203.0.113.99").Return(false, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.IPAddress == "203.0.113.99"
	})).Return(true, nil)

	body := `{
		"ip_address": "203.0.113.99",
		"user_agent": "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
		"screen_resolution": "1920x1080",
		"language": "pt-BR"
	}`
	rec := trackThrough(t, repo, bl, body, "10.0.0.5:42132")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(100), resp["score"])

	repo.AssertExpectations(t)
	bl.AssertExpectations(t)
}

func TestTrackDeviceFallsBackToConnectionAddress(t *testing.T) {
	repo := new(mockDeviceRepo)
	bl := new(mockBlacklist)

	bl.On("IsBlacklisted", mock.Anything, "192.0.2.10").Return(false, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.IPAddress == "192.0.2.10"
	})).Return(true, nil)

	body := `{"user_agent": "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"}`
	rec := trackThrough(t, repo, bl, body, "192.0.2.10:50000")

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}
