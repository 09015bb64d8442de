// Package trust computes the 0-100 trust score for device observations.
package trust

import (
	"context"

	"fitfoco/internal/domain"
)

// Score deductions and thresholds. A blacklisted IP overrides everything.
const (
	baseScore         = 100
	mobilePenalty     = 10
	unknownPenalty    = 20
	SuspiciousBelow   = 50
	HighSeverityBelow = 30
)

// BlacklistChecker reports whether an IP currently has an active,
// non-expired blacklist entry.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
}

type Scorer struct {
	blacklist BlacklistChecker
}

func NewScorer(blacklist BlacklistChecker) *Scorer {
	return &Scorer{blacklist: blacklist}
}

// Score computes the trust score for an observation. Mobile devices and
// unrecognized browsers lose points; an actively blacklisted IP forces the
// score to zero regardless of anything else.
func (s *Scorer) Score(ctx context.Context, deviceType domain.DeviceType, browser, ip string) (int, error) {
	score := baseScore

	if deviceType == domain.DeviceMobile {
		score -= mobilePenalty
	}
	if browser == "Unknown" {
		score -= unknownPenalty
	}

	blocked, err := s.blacklist.IsBlacklisted(ctx, ip)
	if err != nil {
		return 0, err
	}
	if blocked {
		return 0, nil
	}

	return score, nil
}

// Classify maps a score to the status assigned at device-registration time.
// Status is set once, at creation; re-observation never re-derives it, and
// only an admin can move a device to blocked.
func Classify(score int) domain.DeviceStatus {
	if score < SuspiciousBelow {
		return domain.DeviceSuspicious
	}
	return domain.DeviceActive
}

// SeverityFor maps a below-threshold score to the audit record severity.
func SeverityFor(score int) domain.Severity {
	if score < HighSeverityBelow {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}
