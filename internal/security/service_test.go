package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"fitfoco/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	args := m.Called(ctx, ip)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) AddToBlacklist(ctx context.Context, entry *domain.IPBlacklistEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRepository) GetBlacklist(ctx context.Context) ([]domain.IPBlacklistEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IPBlacklistEntry), args.Error(1)
}

func (m *MockRepository) ExpireBlacklistEntry(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockRepository) GetActivities(ctx context.Context, limit, offset int) ([]domain.SuspiciousActivity, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.SuspiciousActivity), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpdateActivityStatus(ctx context.Context, id uuid.UUID, status domain.ActivityStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockDeviceAdminRepository struct {
	mock.Mock
}

func (m *MockDeviceAdminRepository) GetAll(ctx context.Context, limit, offset int) ([]domain.Device, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Device), args.Int(1), args.Error(2)
}

func (m *MockDeviceAdminRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceAdminRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDeviceAdminRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestBlockIP_MarksActivityAndInsertsEntry(t *testing.T) {
	repo := new(MockRepository)
	adminID := uuid.New()
	activityID := uuid.New()

	repo.On("UpdateActivityStatus", mock.Anything, activityID, domain.ActivityBlocked).Return(nil)
	repo.On("AddToBlacklist", mock.Anything, mock.MatchedBy(func(e *domain.IPBlacklistEntry) bool {
		return e.IPAddress == "198.51.100.1" &&
			e.Status == domain.BlacklistActive &&
			e.BlockedBy != nil && *e.BlockedBy == adminID
	})).Return(nil)

	svc := NewService(repo, new(MockDeviceAdminRepository), nil)
	err := svc.BlockIP(context.Background(), activityID, "198.51.100.1", adminID)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBlockIP_DuplicateEntryIsBenign(t *testing.T) {
	// The repository swallows the unique-violation conflict, so blocking the
	// same IP twice surfaces no error to the caller.
	repo := new(MockRepository)
	repo.On("UpdateActivityStatus", mock.Anything, mock.Anything, domain.ActivityBlocked).Return(nil)
	repo.On("AddToBlacklist", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, new(MockDeviceAdminRepository), nil)
	for i := 0; i < 2; i++ {
		err := svc.BlockIP(context.Background(), uuid.New(), "198.51.100.1", uuid.New())
		assert.NoError(t, err)
	}
	repo.AssertNumberOfCalls(t, "AddToBlacklist", 2)
}

func TestBlockIP_ActivityUpdateFailureStopsBlacklisting(t *testing.T) {
	repo := new(MockRepository)
	repo.On("UpdateActivityStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("write failed"))

	svc := NewService(repo, new(MockDeviceAdminRepository), nil)
	err := svc.BlockIP(context.Background(), uuid.New(), "198.51.100.1", uuid.New())

	assert.Error(t, err)
	repo.AssertNotCalled(t, "AddToBlacklist", mock.Anything, mock.Anything)
}

func TestBlock_WithExpiry(t *testing.T) {
	repo := new(MockRepository)
	expires := time.Now().Add(24 * time.Hour)
	repo.On("AddToBlacklist", mock.Anything, mock.MatchedBy(func(e *domain.IPBlacklistEntry) bool {
		return e.ExpiresAt != nil && e.ExpiresAt.Equal(expires) && e.Reason == "manual block"
	})).Return(nil)

	svc := NewService(repo, new(MockDeviceAdminRepository), nil)
	err := svc.Block(context.Background(), "203.0.113.50", "manual block", nil, &expires)

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBlockDevice_SetsBlockedStatus(t *testing.T) {
	devices := new(MockDeviceAdminRepository)
	id := uuid.New()
	devices.On("UpdateStatus", mock.Anything, id, domain.DeviceBlocked).Return(nil)

	svc := NewService(new(MockRepository), devices, nil)
	assert.NoError(t, svc.BlockDevice(context.Background(), id))
	devices.AssertExpectations(t)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Broadcast(event string, payload interface{}) {
	m.Called(event, payload)
}

func TestBlockDevice_BroadcastsToFeed(t *testing.T) {
	devices := new(MockDeviceAdminRepository)
	feed := new(MockBroadcaster)
	id := uuid.New()
	blocked := &domain.Device{ID: id, IPAddress: "203.0.113.7", Status: domain.DeviceBlocked}

	devices.On("UpdateStatus", mock.Anything, id, domain.DeviceBlocked).Return(nil)
	devices.On("FindByID", mock.Anything, id).Return(blocked, nil)
	feed.On("Broadcast", "device_blocked", blocked).Return()

	svc := NewService(new(MockRepository), devices, feed)
	assert.NoError(t, svc.BlockDevice(context.Background(), id))
	feed.AssertExpectations(t)
}

func TestDeleteDevice(t *testing.T) {
	devices := new(MockDeviceAdminRepository)
	id := uuid.New()
	devices.On("Delete", mock.Anything, id).Return(nil)

	svc := NewService(new(MockRepository), devices, nil)
	assert.NoError(t, svc.DeleteDevice(context.Background(), id))
	devices.AssertExpectations(t)
}
