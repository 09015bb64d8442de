// Package security hosts the IP blacklist, the suspicious-activity audit
// trail, and the admin device actions.
package security

import (
	"context"
	"time"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
)

type Repository interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
	AddToBlacklist(ctx context.Context, entry *domain.IPBlacklistEntry) error
	GetBlacklist(ctx context.Context) ([]domain.IPBlacklistEntry, error)
	ExpireBlacklistEntry(ctx context.Context, id uuid.UUID) error
	RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error
	GetActivities(ctx context.Context, limit, offset int) ([]domain.SuspiciousActivity, int, error)
	UpdateActivityStatus(ctx context.Context, id uuid.UUID, status domain.ActivityStatus) error
}

// DeviceAdminRepository covers the direct single-row device mutations the
// back office performs.
type DeviceAdminRepository interface {
	GetAll(ctx context.Context, limit, offset int) ([]domain.Device, int, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Broadcaster pushes events to connected admin dashboards. May be nil.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Service struct {
	repo    Repository
	devices DeviceAdminRepository
	feed    Broadcaster
}

func NewService(repo Repository, devices DeviceAdminRepository, feed Broadcaster) *Service {
	return &Service{repo: repo, devices: devices, feed: feed}
}

// IsBlacklisted reports whether ip has an active, non-expired entry.
func (s *Service) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	return s.repo.IsBlacklisted(ctx, ip)
}

// BlockIP marks a suspicious activity as blocked and inserts the matching
// blacklist entry. A duplicate active entry for the same IP is a benign
// conflict: the desired state already holds, so the repository swallows it.
func (s *Service) BlockIP(ctx context.Context, activityID uuid.UUID, ip string, adminID uuid.UUID) error {
	if err := s.repo.UpdateActivityStatus(ctx, activityID, domain.ActivityBlocked); err != nil {
		return ffoerrors.Wrap(err, "failed to mark activity blocked")
	}

	entry := &domain.IPBlacklistEntry{
		ID:        uuid.New(),
		IPAddress: ip,
		Reason:    "Atividade suspeita detectada",
		BlockedBy: &adminID,
		BlockedAt: time.Now().UTC(),
		Status:    domain.BlacklistActive,
	}
	if err := s.repo.AddToBlacklist(ctx, entry); err != nil {
		return ffoerrors.Wrap(err, "failed to add ip to blacklist")
	}

	if s.feed != nil {
		s.feed.Broadcast("ip_blocked", entry)
	}
	return nil
}

// Block inserts a blacklist entry directly, without an originating activity.
func (s *Service) Block(ctx context.Context, ip, reason string, blockedBy *uuid.UUID, expiresAt *time.Time) error {
	entry := &domain.IPBlacklistEntry{
		ID:        uuid.New(),
		IPAddress: ip,
		Reason:    reason,
		BlockedBy: blockedBy,
		BlockedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
		Status:    domain.BlacklistActive,
	}
	return s.repo.AddToBlacklist(ctx, entry)
}

func (s *Service) GetBlacklist(ctx context.Context) ([]domain.IPBlacklistEntry, error) {
	return s.repo.GetBlacklist(ctx)
}

// Unblock deactivates a blacklist entry.
func (s *Service) Unblock(ctx context.Context, id uuid.UUID) error {
	return s.repo.ExpireBlacklistEntry(ctx, id)
}

func (s *Service) GetActivities(ctx context.Context, limit, offset int) ([]domain.SuspiciousActivity, int, error) {
	return s.repo.GetActivities(ctx, limit, offset)
}

func (s *Service) GetDevices(ctx context.Context, limit, offset int) ([]domain.Device, int, error) {
	return s.devices.GetAll(ctx, limit, offset)
}

// BlockDevice escalates a device to blocked. Only admins move devices to
// blocked; the scorer never does.
func (s *Service) BlockDevice(ctx context.Context, id uuid.UUID) error {
	if err := s.devices.UpdateStatus(ctx, id, domain.DeviceBlocked); err != nil {
		return err
	}

	if s.feed != nil {
		if device, err := s.devices.FindByID(ctx, id); err == nil {
			s.feed.Broadcast("device_blocked", device)
		}
	}
	return nil
}

// DeleteDevice removes the device row outright. No cascading side effects.
func (s *Service) DeleteDevice(ctx context.Context, id uuid.UUID) error {
	return s.devices.Delete(ctx, id)
}
