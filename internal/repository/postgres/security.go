package postgres

import (
	"context"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type SecurityRepository struct {
	db *sqlx.DB
}

func NewSecurityRepository(db *sqlx.DB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// IsBlacklisted reports whether the IP has an active, non-expired block.
func (r *SecurityRepository) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM ip_blacklist
		WHERE ip_address = $1
		  AND status = 'active'
		  AND (expires_at IS NULL OR expires_at > NOW())`

	err := r.db.GetContext(ctx, &count, query, ip)
	if err != nil {
		return false, ffoerrors.Wrap(err, "failed to check ip blacklist")
	}

	return count > 0, nil
}

// AddToBlacklist inserts a block entry. Re-blocking an already blocked IP
// is a no-op rather than an error; the existing entry stands.
func (r *SecurityRepository) AddToBlacklist(ctx context.Context, entry *domain.IPBlacklistEntry) error {
	query := `
		INSERT INTO ip_blacklist (id, ip_address, reason, blocked_by, blocked_at, expires_at, status)
		VALUES (:id, :ip_address, :reason, :blocked_by, :blocked_at, :expires_at, :status)
		ON CONFLICT (ip_address) WHERE status = 'active' DO NOTHING`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to add ip to blacklist")
	}

	return nil
}

func (r *SecurityRepository) GetBlacklist(ctx context.Context) ([]domain.IPBlacklistEntry, error) {
	var entries []domain.IPBlacklistEntry
	query := `
		SELECT id, ip_address, reason, blocked_by, blocked_at, expires_at, status
		FROM ip_blacklist
		WHERE status = 'active'
		ORDER BY blocked_at DESC`

	err := r.db.SelectContext(ctx, &entries, query)
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to get ip blacklist")
	}

	return entries, nil
}

func (r *SecurityRepository) ExpireBlacklistEntry(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE ip_blacklist SET status = 'expired' WHERE id = $1 AND status = 'active'", id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to expire blacklist entry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check blacklist update result")
	}
	if affected == 0 {
		return ffoerrors.ErrActivityNotFound
	}

	return nil
}

func (r *SecurityRepository) RecordActivity(ctx context.Context, activity *domain.SuspiciousActivity) error {
	query := `
		INSERT INTO suspicious_activities
			(id, ip_address, user_agent, activity_type, reason, severity, status, device_info, created_at)
		VALUES
			(:id, :ip_address, :user_agent, :activity_type, :reason, :severity, :status, :device_info, :created_at)
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, activity)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to record suspicious activity")
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&activity.ID); err != nil {
			return ffoerrors.Wrap(err, "failed to scan suspicious activity id")
		}
	}

	return nil
}

func (r *SecurityRepository) GetActivities(ctx context.Context, limit, offset int) ([]domain.SuspiciousActivity, int, error) {
	var activities []domain.SuspiciousActivity
	var total int

	query := `
		SELECT id, ip_address, user_agent, activity_type, reason, severity, status, device_info, created_at
		FROM suspicious_activities
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	err := r.db.SelectContext(ctx, &activities, query, limit, offset)
	if err != nil {
		return nil, 0, ffoerrors.Wrap(err, "failed to get suspicious activities")
	}

	err = r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM suspicious_activities")
	if err != nil {
		return nil, 0, ffoerrors.Wrap(err, "failed to count suspicious activities")
	}

	return activities, total, nil
}

func (r *SecurityRepository) UpdateActivityStatus(ctx context.Context, id uuid.UUID, status domain.ActivityStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE suspicious_activities SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to update activity status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check activity update result")
	}
	if affected == 0 {
		return ffoerrors.ErrActivityNotFound
	}

	return nil
}
