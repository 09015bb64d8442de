package device

import (
	"context"
	"errors"
	"testing"

	"fitfoco/internal/domain"
	"fitfoco/internal/trust"
	ffoerrors "fitfoco/pkg/errors"
	"fitfoco/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Upsert(ctx context.Context, device *domain.Device) (bool, error) {
	args := m.Called(ctx, device)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Device), args.Error(1)
}

type MockActivityRecorder struct {
	mock.Mock
}

func (m *MockActivityRecorder) RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

type MockBlacklist struct {
	mock.Mock
}

func (m *MockBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	args := m.Called(ctx, ip)
	return args.Bool(0), args.Error(1)
}

func newTestService(repo *MockRepository, acts *MockActivityRecorder, bl *MockBlacklist) *Service {
	return NewService(repo, acts, trust.NewScorer(bl), nil, logger.NewNop())
}

const desktopChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0 Safari/537.36"

func TestRecordObservation_NewHealthyDevice(t *testing.T) {
	repo := new(MockRepository)
	acts := new(MockActivityRecorder)
	bl := new(MockBlacklist)
	bl.On("IsBlacklisted", mock.Anything, "203.0.113.7").Return(false, nil)

	userID := uuid.New()
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.UserID == userID &&
			d.IPAddress == "203.0.113.7" &&
			d.Score == 100 &&
			d.Status == domain.DeviceActive &&
			d.FirstSeen.Equal(d.LastSeen)
	})).Return(true, nil)

	svc := newTestService(repo, acts, bl)
	res, err := svc.RecordObservation(context.Background(), userID, Observation{
		IPAddress: "203.0.113.7",
		UserAgent: desktopChromeUA,
	})

	assert.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "Chrome", res.Browser)
	assert.Equal(t, "Windows", res.OS)
	assert.Equal(t, domain.DeviceDesktop, res.DeviceType)
	repo.AssertExpectations(t)
	// Score >= 50: no audit record.
	acts.AssertNotCalled(t, "RecordActivity", mock.Anything, mock.Anything)
}

func TestRecordObservation_RequiresAuthenticatedCaller(t *testing.T) {
	svc := newTestService(new(MockRepository), new(MockActivityRecorder), new(MockBlacklist))

	_, err := svc.RecordObservation(context.Background(), uuid.Nil, Observation{
		IPAddress: "203.0.113.7",
		UserAgent: desktopChromeUA,
	})

	assert.ErrorIs(t, err, ffoerrors.ErrNotAuthenticated)
}

func TestRecordObservation_LowScoreEmitsActivityOnce(t *testing.T) {
	repo := new(MockRepository)
	acts := new(MockActivityRecorder)
	// Deductions alone bottom out at 70, so the sub-50 path in practice comes
	// from the blacklist override forcing score to zero.
	blBlocked := new(MockBlacklist)
	blBlocked.On("IsBlacklisted", mock.Anything, "198.51.100.1").Return(true, nil)

	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(d *domain.Device) bool {
		return d.Score == 0 && d.Status == domain.DeviceSuspicious
	})).Return(true, nil)

	acts.On("RecordActivity", mock.Anything, mock.MatchedBy(func(a *domain.SuspiciousActivity) bool {
		return a.ActivityType == "new_device_low_score" &&
			a.Severity == domain.SeverityHigh &&
			a.Status == domain.ActivityNew &&
			a.IPAddress == "198.51.100.1"
	})).Return(nil)

	svc := newTestService(repo, acts, blBlocked)
	res, err := svc.RecordObservation(context.Background(), uuid.New(), Observation{
		IPAddress: "198.51.100.1",
		UserAgent: desktopChromeUA,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	acts.AssertNumberOfCalls(t, "RecordActivity", 1)
}

func TestRecordObservation_UpdateNeverEmitsActivity(t *testing.T) {
	repo := new(MockRepository)
	acts := new(MockActivityRecorder)
	bl := new(MockBlacklist)
	bl.On("IsBlacklisted", mock.Anything, "198.51.100.1").Return(true, nil)

	// Upsert reports the row already existed.
	repo.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)

	svc := newTestService(repo, acts, bl)
	res, err := svc.RecordObservation(context.Background(), uuid.New(), Observation{
		IPAddress: "198.51.100.1",
		UserAgent: desktopChromeUA,
	})

	assert.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	acts.AssertNotCalled(t, "RecordActivity", mock.Anything, mock.Anything)
}

func TestRecordObservation_PersistenceFailurePropagates(t *testing.T) {
	repo := new(MockRepository)
	acts := new(MockActivityRecorder)
	bl := new(MockBlacklist)
	bl.On("IsBlacklisted", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(false, errors.New("write failed"))

	svc := newTestService(repo, acts, bl)
	_, err := svc.RecordObservation(context.Background(), uuid.New(), Observation{
		IPAddress: "203.0.113.7",
		UserAgent: desktopChromeUA,
	})

	assert.Error(t, err)
}

func TestRecordObservation_MediumSeverityBand(t *testing.T) {
	// Score in [30,50) produces a medium-severity record. Mobile (-10) plus
	// unknown browser (-20) gives 70, so the only sub-50 non-zero scores come
	// from the blacklist override; the severity split is covered directly in
	// the trust package. Here we pin the medium band through SeverityFor.
	assert.Equal(t, domain.SeverityMedium, trust.SeverityFor(35))
	assert.Equal(t, domain.SeverityHigh, trust.SeverityFor(29))
}
