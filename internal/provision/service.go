// Package provision turns approved payment events into accounts and
// subscriptions.
package provision

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountProvider is the authentication backend. CreateAccount must return
// ffoerrors.ErrAccountAlreadyExists when the email is taken so the
// provisioner can fall back to reuse.
type AccountProvider interface {
	CreateAccount(ctx context.Context, email, password, fullName string, role domain.Role) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error)
}

// CredentialSender delivers first-login credentials. Delivery is best
// effort; its failures never fail provisioning.
type CredentialSender interface {
	SendCredentials(ctx context.Context, email, password, name, planType string) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Service struct {
	accounts AccountProvider
	subs     SubscriptionRepository
	mailer   CredentialSender
	logger   Logger
}

func NewService(accounts AccountProvider, subs SubscriptionRepository, mailer CredentialSender, log Logger) *Service {
	return &Service{
		accounts: accounts,
		subs:     subs,
		mailer:   mailer,
		logger:   log,
	}
}

// Result reports what Provision did.
type Result struct {
	UserID            uuid.UUID
	AccountIsNew      bool
	TemporaryPassword *string
}

// Provision ensures an account and an active subscription exist for an
// approved payment event. Identity is idempotent by email: a replayed
// webhook reuses the existing account and never resets its password. The
// subscription row is always inserted; history is preserved.
func (s *Service) Provision(ctx context.Context, event *domain.PaymentEvent) (*Result, error) {
	if !event.Approved {
		return nil, fmt.Errorf("refusing to provision unapproved event %s", event.TransactionID)
	}
	if !event.PlanType.Valid() {
		return nil, ffoerrors.ErrInvalidPlanType
	}

	password, err := generatePassword(16)
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to generate password")
	}

	result := &Result{AccountIsNew: true, TemporaryPassword: &password}

	account, err := s.accounts.CreateAccount(ctx, event.Email, password, event.Name, domain.RoleClient)
	switch {
	case err == nil:
		result.UserID = account.ID
	case errors.Is(err, ffoerrors.ErrAccountAlreadyExists):
		existing, findErr := s.accounts.FindByEmail(ctx, event.Email)
		if findErr != nil {
			return nil, ffoerrors.Wrap(findErr, "account exists but lookup failed")
		}
		result.UserID = existing.ID
		result.AccountIsNew = false
		result.TemporaryPassword = nil
	default:
		return nil, ffoerrors.Wrap(err, "failed to create account")
	}

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:            uuid.New(),
		UserID:        result.UserID,
		PlanType:      event.PlanType,
		Amount:        event.Amount,
		Status:        domain.SubscriptionActive,
		TransactionID: &event.TransactionID,
		StartDate:     now,
		EndDate:       event.PlanType.EndDate(now),
	}

	if err := s.subs.Create(ctx, sub); err != nil {
		if result.AccountIsNew {
			// Best-effort rollback of the account created above. A
			// pre-existing account is never touched on failure.
			if delErr := s.accounts.DeleteAccount(ctx, result.UserID); delErr != nil {
				s.logger.Error("failed to roll back account after subscription failure", map[string]interface{}{
					"user_id": result.UserID.String(),
					"error":   delErr.Error(),
				})
			}
		}
		return nil, ffoerrors.Wrap(err, "failed to create subscription")
	}

	s.logger.Info("subscription provisioned", map[string]interface{}{
		"user_id":        result.UserID.String(),
		"plan_type":      string(event.PlanType),
		"transaction_id": event.TransactionID,
		"account_is_new": result.AccountIsNew,
	})

	if result.AccountIsNew {
		if err := s.mailer.SendCredentials(ctx, event.Email, password, event.Name, string(event.PlanType)); err != nil {
			// The subscription is already durable; email delivery is best effort.
			s.logger.Error("failed to send credentials email", map[string]interface{}{
				"email": event.Email,
				"error": err.Error(),
			})
		}
	}

	return result, nil
}

// CreateClientRequest is the admin back-office client creation input.
type CreateClientRequest struct {
	Email          string          `json:"email" validate:"required,email"`
	Password       string          `json:"password" validate:"required,min=8"`
	FullName       string          `json:"full_name"`
	PlanType       domain.PlanType `json:"plan_type"`
	Amount         decimal.Decimal `json:"amount"`
	DurationMonths int             `json:"duration_months"`
}

// CreateClient creates an account with an explicit password and an active
// subscription of the given duration. Unlike Provision, an existing email is
// an error here; the admin UI surfaces it as such.
func (s *Service) CreateClient(ctx context.Context, req *CreateClientRequest) (uuid.UUID, error) {
	planType := req.PlanType
	if !planType.Valid() {
		planType = domain.PlanMensal
	}
	months := req.DurationMonths
	if months <= 0 {
		months = 1
	}
	amount := req.Amount
	if amount.IsZero() {
		amount = decimal.RequireFromString("18.90")
	}

	account, err := s.accounts.CreateAccount(ctx, req.Email, req.Password, req.FullName, domain.RoleClient)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:        uuid.New(),
		UserID:    account.ID,
		PlanType:  planType,
		Amount:    amount,
		Status:    domain.SubscriptionActive,
		StartDate: now,
		EndDate:   domain.AddCalendarMonths(now, months),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		if delErr := s.accounts.DeleteAccount(ctx, account.ID); delErr != nil {
			s.logger.Error("failed to roll back account after subscription failure", map[string]interface{}{
				"user_id": account.ID.String(),
				"error":   delErr.Error(),
			})
		}
		return uuid.Nil, ffoerrors.Wrap(err, "failed to create subscription")
	}

	return account.ID, nil
}

// ManualApprove inserts a fresh active subscription for an existing user.
// Used by the admin manual-approval flow; history rows are never mutated.
func (s *Service) ManualApprove(ctx context.Context, userID uuid.UUID, planType domain.PlanType, amount decimal.Decimal) (*domain.Subscription, error) {
	if !planType.Valid() {
		return nil, ffoerrors.ErrInvalidPlanType
	}

	now := time.Now().UTC()
	sub := &domain.Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		PlanType:  planType,
		Amount:    amount,
		Status:    domain.SubscriptionActive,
		StartDate: now,
		EndDate:   planType.EndDate(now),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, ffoerrors.Wrap(err, "failed to create subscription")
	}
	return sub, nil
}

// ActiveSubscription returns the caller's current paid-access window, if any.
func (s *Service) ActiveSubscription(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	return s.subs.FindActiveByUserID(ctx, userID)
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generatePassword(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
