// Package domain defines the core types shared across services.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanType identifies one of the three subscription plans sold on the
// checkout pages.
type PlanType string

const (
	PlanMensal     PlanType = "mensal"
	PlanTrimestral PlanType = "trimestral"
	PlanAnual      PlanType = "anual"
)

// Valid reports whether p is one of the known plan types.
func (p PlanType) Valid() bool {
	switch p {
	case PlanMensal, PlanTrimestral, PlanAnual:
		return true
	}
	return false
}

// PeriodMonths returns the plan's paid-access window in calendar months.
func (p PlanType) PeriodMonths() int {
	switch p {
	case PlanTrimestral:
		return 3
	case PlanAnual:
		return 12
	default:
		return 1
	}
}

// EndDate computes the subscription end date from a start date. Month
// arithmetic is overflow safe: Jan 31 + 3 months lands on Apr 30, not May 1.
func (p PlanType) EndDate(start time.Time) time.Time {
	return AddCalendarMonths(start, p.PeriodMonths())
}

// AddCalendarMonths adds n calendar months to t, clamping the day of month
// to the last day of the target month.
func AddCalendarMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	m := int(month) + n
	year += (m - 1) / 12
	month = time.Month((m-1)%12 + 1)

	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

type DeviceType string

const (
	DeviceDesktop DeviceType = "Desktop"
	DeviceMobile  DeviceType = "Mobile"
	DeviceTablet  DeviceType = "Tablet"
)

type DeviceStatus string

const (
	DeviceActive     DeviceStatus = "active"
	DeviceSuspicious DeviceStatus = "suspicious"
	DeviceBlocked    DeviceStatus = "blocked"
)

// Device is one (user, source IP) pairing ever observed. Re-observation
// updates the row in place; rows are only removed by explicit admin action.
type Device struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	UserID           uuid.UUID    `json:"user_id" db:"user_id"`
	IPAddress        string       `json:"ip_address" db:"ip_address"`
	UserAgent        string       `json:"user_agent" db:"user_agent"`
	DeviceType       DeviceType   `json:"device_type" db:"device_type"`
	Browser          string       `json:"browser" db:"browser"`
	OS               string       `json:"os" db:"os"`
	ScreenResolution *string      `json:"screen_resolution,omitempty" db:"screen_resolution"`
	Language         *string      `json:"language,omitempty" db:"language"`
	Score            int          `json:"score" db:"score"`
	Status           DeviceStatus `json:"status" db:"status"`
	FirstSeen        time.Time    `json:"first_seen" db:"first_seen"`
	LastSeen         time.Time    `json:"last_seen" db:"last_seen"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type ActivityStatus string

const (
	ActivityNew     ActivityStatus = "new"
	ActivityBlocked ActivityStatus = "blocked"
)

// DeviceSnapshot is the structured device state captured on a suspicious
// activity record. Stored as jsonb.
type DeviceSnapshot struct {
	Browser    string  `json:"browser"`
	OS         string  `json:"os"`
	Device     string  `json:"device"`
	Resolution *string `json:"resolution,omitempty"`
}

func (s DeviceSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *DeviceSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = DeviceSnapshot{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into DeviceSnapshot", value)
	}
	return json.Unmarshal(b, s)
}

// SuspiciousActivity is an immutable audit event emitted when a device
// registers with a low trust score. Only the admin block action mutates it,
// flipping status to blocked.
type SuspiciousActivity struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	IPAddress    string         `json:"ip_address" db:"ip_address"`
	UserAgent    string         `json:"user_agent" db:"user_agent"`
	ActivityType string         `json:"activity_type" db:"activity_type"`
	Reason       string         `json:"reason" db:"reason"`
	Severity     Severity       `json:"severity" db:"severity"`
	Status       ActivityStatus `json:"status" db:"status"`
	DeviceInfo   DeviceSnapshot `json:"device_info" db:"device_info"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

type BlacklistStatus string

const (
	BlacklistActive  BlacklistStatus = "active"
	BlacklistExpired BlacklistStatus = "expired"
)

// IPBlacklistEntry is set membership with metadata. At most one active entry
// exists per IP; inserting a duplicate active entry is a benign conflict.
type IPBlacklistEntry struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	IPAddress string          `json:"ip_address" db:"ip_address"`
	Reason    string          `json:"reason" db:"reason"`
	BlockedBy *uuid.UUID      `json:"blocked_by,omitempty" db:"blocked_by"`
	BlockedAt time.Time       `json:"blocked_at" db:"blocked_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty" db:"expires_at"`
	Status    BlacklistStatus `json:"status" db:"status"`
}

type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Subscription is one user's paid-access window. History is preserved: a
// user may accumulate multiple rows over time, and access is determined by
// querying for an active row whose end date is in the future.
type Subscription struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	UserID        uuid.UUID          `json:"user_id" db:"user_id"`
	PlanType      PlanType           `json:"plan_type" db:"plan_type"`
	Amount        decimal.Decimal    `json:"amount" db:"amount"`
	Status        SubscriptionStatus `json:"status" db:"status"`
	TransactionID *string            `json:"transaction_id,omitempty" db:"transaction_id"`
	StartDate     time.Time          `json:"start_date" db:"start_date"`
	EndDate       time.Time          `json:"end_date" db:"end_date"`
}

type Role string

const (
	RoleClient Role = "cliente"
	RoleAdmin  Role = "admin"
)

// Account is an authenticated identity plus its profile row.
type Account struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	FullName      *string   `json:"full_name,omitempty" db:"full_name"`
	Role          Role      `json:"role" db:"role"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	TOTPSecret    *string   `json:"-" db:"totp_secret"`
	IsTOTPEnabled bool      `json:"is_totp_enabled" db:"is_totp_enabled"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// PaymentProvider tags which checkout provider a webhook came from.
type PaymentProvider string

const (
	ProviderRisePay PaymentProvider = "risepay"
	ProviderCakto   PaymentProvider = "cakto"
)

// PaymentEvent is the provider-agnostic normalized representation of a
// webhook payload.
type PaymentEvent struct {
	Provider      PaymentProvider `json:"provider"`
	TransactionID string          `json:"transaction_id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	PlanType      PlanType        `json:"plan_type"`
	Amount        decimal.Decimal `json:"amount"`
	Approved      bool            `json:"approved"`
}
