package postgres

import (
	"context"
	"database/sql"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, plan_type, amount, status, transaction_id, start_date, end_date)
		VALUES (:id, :user_id, :plan_type, :amount, :status, :transaction_id, :start_date, :end_date)
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, sub)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to create subscription")
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&sub.ID); err != nil {
			return ffoerrors.Wrap(err, "failed to scan subscription id")
		}
	}

	return nil
}

// FindActiveByUserID returns the user's newest active subscription whose
// period has not ended.
func (r *SubscriptionRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
		SELECT id, user_id, plan_type, amount, status, transaction_id, start_date, end_date
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'active'
		  AND end_date > NOW()
		ORDER BY end_date DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &sub, query, userID)
	if err == sql.ErrNoRows {
		return nil, ffoerrors.ErrNoActiveSubscription
	}
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to get active subscription")
	}

	return &sub, nil
}
