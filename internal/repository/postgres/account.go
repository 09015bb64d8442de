package postgres

import (
	"context"
	"database/sql"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, full_name, role, password_hash, email_verified, totp_secret, is_totp_enabled, created_at, updated_at)
		VALUES (:id, :email, :full_name, :role, :password_hash, :email_verified, :totp_secret, :is_totp_enabled, :created_at, :updated_at)
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, account)
	if err != nil {
		// Callers inspect the driver error for unique violations, so it
		// is returned unwrapped.
		return err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&account.ID); err != nil {
			return ffoerrors.Wrap(err, "failed to scan account id")
		}
	}

	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, email, full_name, role, password_hash, email_verified, totp_secret, is_totp_enabled, created_at, updated_at
		FROM accounts
		WHERE id = $1`

	err := r.db.GetContext(ctx, &account, query, id)
	if err == sql.ErrNoRows {
		return nil, ffoerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to get account")
	}

	return &account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	query := `
		SELECT id, email, full_name, role, password_hash, email_verified, totp_secret, is_totp_enabled, created_at, updated_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)`

	err := r.db.GetContext(ctx, &account, query, email)
	if err == sql.ErrNoRows {
		return nil, ffoerrors.ErrAccountNotFound
	}
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to get account by email")
	}

	return &account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to delete account")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check account delete result")
	}
	if affected == 0 {
		return ffoerrors.ErrAccountNotFound
	}

	return nil
}

func (r *AccountRepository) SetTOTP(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE accounts SET totp_secret = $1, is_totp_enabled = $2, updated_at = NOW() WHERE id = $3",
		secret, enabled, id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to update totp settings")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check totp update result")
	}
	if affected == 0 {
		return ffoerrors.ErrAccountNotFound
	}

	return nil
}
