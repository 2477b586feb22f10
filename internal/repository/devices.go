package repository

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

const deviceColumns = `
	SELECT d.id, d.owner_id, u.name AS owner_name, d.name, d.type, d.location, d.power_rating, d.status
	FROM devices d
	LEFT JOIN users u ON u.id = d.owner_id`

func (r *Repos) CreateUser(ctx context.Context, u *domain.User) error {
	u.CreatedAt = utc(u.CreatedAt)
	err := r.db.QueryRowxContext(ctx,
		r.q(`INSERT INTO users (name, email, created_at) VALUES (?, ?, ?) RETURNING id`),
		u.Name, u.Email, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repos) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, r.q(`SELECT id, name, email, created_at FROM users WHERE id = ?`), id)
	if err != nil {
		return u, notFound(err, "user", id)
	}
	return u, nil
}

func (r *Repos) ListUsers(ctx context.Context) ([]domain.User, error) {
	out := []domain.User{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, name, email, created_at FROM users ORDER BY id`)
	return out, err
}

func (r *Repos) CreateDevice(ctx context.Context, d *domain.Device) error {
	err := r.db.QueryRowxContext(ctx,
		r.q(`INSERT INTO devices (owner_id, name, type, location, power_rating, status)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		d.OwnerID, d.Name, d.Type, d.Location, d.PowerRating, d.Status).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (r *Repos) GetDevice(ctx context.Context, id int64) (domain.Device, error) {
	var d domain.Device
	err := r.db.GetContext(ctx, &d, r.q(deviceColumns+` WHERE d.id = ?`), id)
	if err != nil {
		return d, notFound(err, "device", id)
	}
	return d, nil
}

func (r *Repos) ListDevices(ctx context.Context) ([]domain.Device, error) {
	out := []domain.Device{}
	err := r.db.SelectContext(ctx, &out, deviceColumns+` ORDER BY d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return out, nil
}

func (r *Repos) ListDevicesByOwner(ctx context.Context, ownerID int64) ([]domain.Device, error) {
	out := []domain.Device{}
	err := r.db.SelectContext(ctx, &out, r.q(deviceColumns+` WHERE d.owner_id = ? ORDER BY d.id`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for owner %d: %w", ownerID, err)
	}
	return out, nil
}

func (r *Repos) UpdateDeviceStatus(ctx context.Context, id int64, status bool) error {
	return r.guard(func() error {
		res, err := r.db.ExecContext(ctx, r.q(`UPDATE devices SET status = ? WHERE id = ?`), status, id)
		if err != nil {
			return fmt.Errorf("failed to update device %d status: %w", id, err)
		}
		return affected(res, "device", id)
	})
}

// DeleteDeviceCascade removes a device's usage records and schedules, then the
// device itself, in one transaction. Enforcement log entries are kept.
func (r *Repos) DeleteDeviceCascade(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete of device %d: %w", id, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM usage_records WHERE device_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete usage for device %d: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx, tx.Rebind(`DELETE FROM device_schedules WHERE device_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete schedules for device %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM devices WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete device %d: %w", id, err)
	}
	if err = affected(res, "device", id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repos) CountDevices(ctx context.Context, ownerID *int64) (total, active int64, err error) {
	query := `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN status THEN 1 ELSE 0 END), 0) AS active FROM devices`
	args := []interface{}{}
	if ownerID != nil {
		query += ` WHERE owner_id = ?`
		args = append(args, *ownerID)
	}
	var row struct {
		Total  int64 `db:"total"`
		Active int64 `db:"active"`
	}
	if err = r.db.GetContext(ctx, &row, r.q(query), args...); err != nil {
		return 0, 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return row.Total, row.Active, nil
}
