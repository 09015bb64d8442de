package auth

import (
	"context"
	"testing"
	"time"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	args := m.Called(ctx, id, secret, enabled)
	return args.Error(0)
}

func newTestService(repo *MockRepository) *Service {
	return NewService(repo, "test-secret", 15*time.Minute)
}

func TestCreateAccount_HashesPasswordAndPreVerifies(t *testing.T) {
	repo := new(MockRepository)
	var created *domain.Account
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(*domain.Account)
	}).Return(nil)

	account, err := newTestService(repo).CreateAccount(context.Background(), "maria@example.com", "segredo123", "Maria", domain.RoleClient)

	require.NoError(t, err)
	assert.True(t, account.EmailVerified)
	assert.Equal(t, domain.RoleClient, account.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("segredo123")))
	assert.NotEqual(t, "segredo123", created.PasswordHash)
}

func TestCreateAccount_UniqueViolationMapsToAlreadyExists(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(&pq.Error{Code: "23505"})

	_, err := newTestService(repo).CreateAccount(context.Background(), "maria@example.com", "segredo123", "", domain.RoleClient)

	assert.ErrorIs(t, err, ffoerrors.ErrAccountAlreadyExists)
}

func TestLogin_IssuesTokenWithClaims(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.DefaultCost)
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        "admin@fitfoco.com.br",
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
	}
	repo := new(MockRepository)
	repo.On("FindByEmail", mock.Anything, account.Email).Return(account, nil)

	resp, err := newTestService(repo).Login(context.Background(), &LoginRequest{
		Email:    account.Email,
		Password: "segredo123",
	})
	require.NoError(t, err)

	token, err := jwt.Parse(resp.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, account.ID.String(), claims["user_id"])
	assert.Equal(t, "admin", claims["role"])
	assert.NotEmpty(t, claims["jti"])
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.DefaultCost)
	account := &domain.Account{ID: uuid.New(), Email: "a@b.com", PasswordHash: string(hash)}
	repo := new(MockRepository)
	repo.On("FindByEmail", mock.Anything, "a@b.com").Return(account, nil)

	_, err := newTestService(repo).Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "errada"})
	assert.ErrorIs(t, err, ffoerrors.ErrInvalidCredentials)
}

func TestLogin_TOTPEnforcement(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "FitFoco", AccountName: "a@b.com"})
	require.NoError(t, err)
	secret := key.Secret()

	hash, _ := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.DefaultCost)
	account := &domain.Account{
		ID:            uuid.New(),
		Email:         "a@b.com",
		PasswordHash:  string(hash),
		TOTPSecret:    &secret,
		IsTOTPEnabled: true,
	}
	repo := new(MockRepository)
	repo.On("FindByEmail", mock.Anything, "a@b.com").Return(account, nil)
	svc := newTestService(repo)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "segredo123"})
	assert.ErrorIs(t, err, ffoerrors.ErrTOTPRequired)

	_, err = svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "segredo123", TOTPCode: "000000"})
	assert.ErrorIs(t, err, ffoerrors.ErrInvalidTOTPCode)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	resp, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "segredo123", TOTPCode: code})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestConfirmTOTP_EnablesAfterValidCode(t *testing.T) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "FitFoco", AccountName: "a@b.com"})
	require.NoError(t, err)
	secret := key.Secret()

	account := &domain.Account{ID: uuid.New(), Email: "a@b.com", TOTPSecret: &secret}
	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	repo.On("SetTOTP", mock.Anything, account.ID, secret, true).Return(nil)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	assert.NoError(t, newTestService(repo).ConfirmTOTP(context.Background(), account.ID, code))
	repo.AssertExpectations(t)
}
