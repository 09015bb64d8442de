// Package postgres implements the persistence interfaces on PostgreSQL
// using sqlx.
package postgres

import (
	"context"
	"database/sql"

	"fitfoco/internal/domain"
	ffoerrors "fitfoco/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DeviceRepository struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert records an observation atomically. A device is identified by
// (user_id, ip_address); concurrent first observations collapse into one
// row. On conflict the fingerprint columns and last_seen are refreshed
// while status and first_seen keep their stored values. Whether the row
// was inserted is derived from xmax, which is zero only for rows the
// current transaction created.
func (r *DeviceRepository) Upsert(ctx context.Context, device *domain.Device) (bool, error) {
	query := `
		INSERT INTO authorized_devices
			(id, user_id, ip_address, user_agent, device_type, browser, os,
			 screen_resolution, language, score, status, first_seen, last_seen)
		VALUES
			(:id, :user_id, :ip_address, :user_agent, :device_type, :browser, :os,
			 :screen_resolution, :language, :score, :status, :first_seen, :last_seen)
		ON CONFLICT (user_id, ip_address) DO UPDATE SET
			user_agent        = EXCLUDED.user_agent,
			device_type       = EXCLUDED.device_type,
			browser           = EXCLUDED.browser,
			os                = EXCLUDED.os,
			screen_resolution = EXCLUDED.screen_resolution,
			language          = EXCLUDED.language,
			score             = EXCLUDED.score,
			last_seen         = EXCLUDED.last_seen
		RETURNING id, status, first_seen, (xmax = 0) AS inserted`

	rows, err := r.db.NamedQueryContext(ctx, query, device)
	if err != nil {
		return false, ffoerrors.Wrap(err, "failed to upsert device")
	}
	defer rows.Close()

	var inserted bool
	if rows.Next() {
		if err := rows.Scan(&device.ID, &device.Status, &device.FirstSeen, &inserted); err != nil {
			return false, ffoerrors.Wrap(err, "failed to scan upserted device")
		}
	}

	return inserted, nil
}

func (r *DeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	var device domain.Device
	query := `
		SELECT id, user_id, ip_address, user_agent, device_type, browser, os,
		       screen_resolution, language, score, status, first_seen, last_seen
		FROM authorized_devices
		WHERE id = $1`

	err := r.db.GetContext(ctx, &device, query, id)
	if err == sql.ErrNoRows {
		return nil, ffoerrors.ErrDeviceNotFound
	}
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to get device")
	}

	return &device, nil
}

func (r *DeviceRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Device, error) {
	var devices []domain.Device
	query := `
		SELECT id, user_id, ip_address, user_agent, device_type, browser, os,
		       screen_resolution, language, score, status, first_seen, last_seen
		FROM authorized_devices
		WHERE user_id = $1
		ORDER BY last_seen DESC`

	err := r.db.SelectContext(ctx, &devices, query, userID)
	if err != nil {
		return nil, ffoerrors.Wrap(err, "failed to list devices for user")
	}

	return devices, nil
}

func (r *DeviceRepository) GetAll(ctx context.Context, limit, offset int) ([]domain.Device, int, error) {
	var devices []domain.Device
	var total int

	query := `
		SELECT id, user_id, ip_address, user_agent, device_type, browser, os,
		       screen_resolution, language, score, status, first_seen, last_seen
		FROM authorized_devices
		ORDER BY last_seen DESC
		LIMIT $1 OFFSET $2`

	err := r.db.SelectContext(ctx, &devices, query, limit, offset)
	if err != nil {
		return nil, 0, ffoerrors.Wrap(err, "failed to list devices")
	}

	err = r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM authorized_devices")
	if err != nil {
		return nil, 0, ffoerrors.Wrap(err, "failed to count devices")
	}

	return devices, total, nil
}

func (r *DeviceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE authorized_devices SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to update device status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check device update result")
	}
	if affected == 0 {
		return ffoerrors.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM authorized_devices WHERE id = $1", id)
	if err != nil {
		return ffoerrors.Wrap(err, "failed to delete device")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return ffoerrors.Wrap(err, "failed to check device delete result")
	}
	if affected == 0 {
		return ffoerrors.ErrDeviceNotFound
	}

	return nil
}
