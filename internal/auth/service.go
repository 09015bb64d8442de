// Package auth implements account creation, login, and token issuance.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
}

// Service provides account management and JWT issuance.
type Service struct {
	repo      Repository
	jwtSecret string
	jwtExpiry time.Duration
}

func NewService(repo Repository, jwtSecret string, jwtExpiry time.Duration) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

// LoginRequest captures credentials for login. TOTPCode is required once the
// account has enrolled a TOTP secret.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     *domain.Account `json:"account"`
}

// CreateAccount creates a pre-verified account. A unique-violation on the
// email column maps to ErrAccountAlreadyExists so callers can distinguish
// the benign replay case from real failures.
func (s *Service) CreateAccount(ctx context.Context, email, password, fullName string, role domain.Role) (*domain.Account, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var name *string
	if fullName != "" {
		name = &fullName
	}

	account := &domain.Account{
		ID:            uuid.New(),
		Email:         email,
		FullName:      name,
		Role:          role,
		PasswordHash:  string(passwordHash),
		EmailVerified: true,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ffoerrors.ErrAccountAlreadyExists
		}
		return nil, err
	}

	return account, nil
}

// FindByEmail looks up an existing account.
func (s *Service) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.repo.FindByEmail(ctx, email)
}

// DeleteAccount removes an account. Used by the provisioner's compensation
// path and by admin cleanup.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Login authenticates a user and returns a signed access token. Accounts
// with TOTP enabled must supply a valid code.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	account, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ffoerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ffoerrors.ErrInvalidCredentials
	}

	if account.IsTOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ffoerrors.ErrTOTPRequired
		}
		if account.TOTPSecret == nil || !totp.Validate(req.TOTPCode, *account.TOTPSecret) {
			return nil, ffoerrors.ErrInvalidTOTPCode
		}
	}

	return s.generateToken(account)
}

// EnrollTOTP generates and stores a TOTP secret for an account, returning
// the otpauth URL to display as a QR code. The secret stays disabled until
// confirmed with a valid code.
func (s *Service) EnrollTOTP(ctx context.Context, id uuid.UUID) (string, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", ffoerrors.ErrAccountNotFound
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "FitFoco",
		AccountName: account.Email,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := s.repo.SetTOTP(ctx, id, key.Secret(), false); err != nil {
		return "", err
	}
	return key.URL(), nil
}

// ConfirmTOTP enables TOTP enforcement after the user proves possession of
// the enrolled secret.
func (s *Service) ConfirmTOTP(ctx context.Context, id uuid.UUID, code string) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ffoerrors.ErrAccountNotFound
	}
	if account.TOTPSecret == nil || !totp.Validate(code, *account.TOTPSecret) {
		return ffoerrors.ErrInvalidTOTPCode
	}
	return s.repo.SetTOTP(ctx, id, *account.TOTPSecret, true)
}

func (s *Service) generateToken(account *domain.Account) (*TokenResponse, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)

	claims := jwt.MapClaims{
		"user_id": account.ID.String(),
		"email":   account.Email,
		"role":    string(account.Role),
		"jti":     uuid.NewString(),
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &TokenResponse{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		Account:     account,
	}, nil
}
