// Package device implements the registry of observed (user, IP) devices.
package device

import (
	"context"
	"fmt"
	"time"

	"fitfoco/internal/domain"
	"fitfoco/internal/trust"
	"fitfoco/internal/useragent"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
)

// Repository persists device rows. Upsert must be atomic on the
// (user_id, ip_address) unique key and report whether a new row was created,
// so that concurrent observations can never duplicate a device.
type Repository interface {
	Upsert(ctx context.Context, device *domain.Device) (inserted bool, err error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Device, error)
}

// ActivityRecorder persists suspicious activity audit records.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error
}

// Broadcaster pushes events to connected admin dashboards. May be nil.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Observation is the client-collected fingerprint for one page load.
type Observation struct {
	IPAddress        string  `json:"ip_address" validate:"required"`
	UserAgent        string  `json:"user_agent"`
	ScreenResolution *string `json:"screen_resolution,omitempty"`
	Language         *string `json:"language,omitempty"`
}

// Result is returned to the tracking client.
type Result struct {
	Score      int               `json:"score"`
	Browser    string            `json:"browser"`
	OS         string            `json:"os"`
	DeviceType domain.DeviceType `json:"device_type"`
}

type Service struct {
	repo       Repository
	activities ActivityRecorder
	scorer     *trust.Scorer
	feed       Broadcaster
	logger     Logger
}

func NewService(repo Repository, activities ActivityRecorder, scorer *trust.Scorer, feed Broadcaster, log Logger) *Service {
	return &Service{
		repo:       repo,
		activities: activities,
		scorer:     scorer,
		feed:       feed,
		logger:     log,
	}
}

// RecordObservation parses and scores the observation, then upserts the
// (user, IP) device row. A suspicious-activity record is emitted only on
// first observation of a pair, never on updates, and the status assigned at
// creation is never revisited afterwards.
func (s *Service) RecordObservation(ctx context.Context, userID uuid.UUID, obs Observation) (*Result, error) {
	if userID == uuid.Nil {
		return nil, ffoerrors.ErrNotAuthenticated
	}

	info := useragent.Parse(obs.UserAgent)

	score, err := s.scorer.Score(ctx, info.DeviceType, info.Browser, obs.IPAddress)
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to score observation")
	}

	now := time.Now().UTC()
	dev := &domain.Device{
		ID:               uuid.New(),
		UserID:           userID,
		IPAddress:        obs.IPAddress,
		UserAgent:        obs.UserAgent,
		DeviceType:       info.DeviceType,
		Browser:          info.Browser,
		OS:               info.OS,
		ScreenResolution: obs.ScreenResolution,
		Language:         obs.Language,
		Score:            score,
		Status:           trust.Classify(score),
		FirstSeen:        now,
		LastSeen:         now,
	}

	inserted, err := s.repo.Upsert(ctx, dev)
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to upsert device")
	}

	if inserted {
		s.logger.Info("new device registered", map[string]interface{}{
			"user_id": userID.String(),
			"ip":      obs.IPAddress,
			"score":   score,
		})
		if score < trust.SuspiciousBelow {
			if err := s.recordLowScoreActivity(ctx, obs, info, score); err != nil {
				return nil, err
			}
		}
		if s.feed != nil {
			s.feed.Broadcast("device_registered", dev)
		}
	} else if s.feed != nil {
		s.feed.Broadcast("device_seen", dev)
	}

	return &Result{
		Score:      score,
		Browser:    info.Browser,
		OS:         info.OS,
		DeviceType: info.DeviceType,
	}, nil
}

func (s *Service) recordLowScoreActivity(ctx context.Context, obs Observation, info useragent.Info, score int) error {
	activity := &domain.SuspiciousActivity{
		ID:           uuid.New(),
		IPAddress:    obs.IPAddress,
		UserAgent:    obs.UserAgent,
		ActivityType: "new_device_low_score",
		Reason:       fmt.Sprintf("Novo dispositivo com score baixo (%d/100). Possível tentativa de acesso não autorizado.", score),
		Severity:     trust.SeverityFor(score),
		Status:       domain.ActivityNew,
		DeviceInfo: domain.DeviceSnapshot{
			Browser:    info.Browser,
			OS:         info.OS,
			Device:     string(info.DeviceType),
			Resolution: obs.ScreenResolution,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.activities.RecordActivity(ctx, activity); err != nil {
		return ffoerrors.Wrap(err, "failed to record suspicious activity")
	}

	if s.feed != nil {
		s.feed.Broadcast("suspicious_activity", activity)
	}
	return nil
}

// ListForUser returns the devices observed for one user.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	return s.repo.FindByUserID(ctx, userID)
}
