package repository

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

const scheduleColumns = `SELECT id, device_id, on_time, off_time, enabled FROM device_schedules`

func (r *Repos) CreateSchedule(ctx context.Context, s *domain.Schedule) error {
	err := r.db.QueryRowxContext(ctx,
		r.q(`INSERT INTO device_schedules (device_id, on_time, off_time, enabled) VALUES (?, ?, ?, ?) RETURNING id`),
		s.DeviceID, s.OnTime, s.OffTime, s.Enabled).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *Repos) GetSchedule(ctx context.Context, id int64) (domain.Schedule, error) {
	var s domain.Schedule
	if err := r.db.GetContext(ctx, &s, r.q(scheduleColumns+` WHERE id = ?`), id); err != nil {
		return s, notFound(err, "schedule", id)
	}
	return s, nil
}

func (r *Repos) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	out := []domain.Schedule{}
	if err := r.db.SelectContext(ctx, &out, scheduleColumns+` ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return out, nil
}

func (r *Repos) ListSchedulesByOwner(ctx context.Context, ownerID int64) ([]domain.Schedule, error) {
	out := []domain.Schedule{}
	err := r.db.SelectContext(ctx, &out, r.q(`
		SELECT s.id, s.device_id, s.on_time, s.off_time, s.enabled
		FROM device_schedules s
		JOIN devices d ON d.id = s.device_id
		WHERE d.owner_id = ?
		ORDER BY s.id`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for owner %d: %w", ownerID, err)
	}
	return out, nil
}

func (r *Repos) ListEnabledSchedules(ctx context.Context) ([]domain.Schedule, error) {
	out := []domain.Schedule{}
	if err := r.db.SelectContext(ctx, &out, r.q(scheduleColumns+` WHERE enabled = ? ORDER BY id`), true); err != nil {
		return nil, fmt.Errorf("failed to list enabled schedules: %w", err)
	}
	return out, nil
}

func (r *Repos) SetScheduleEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE device_schedules SET enabled = ? WHERE id = ?`), enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule %d: %w", id, err)
	}
	return affected(res, "schedule", id)
}

func (r *Repos) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM device_schedules WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule %d: %w", id, err)
	}
	return affected(res, "schedule", id)
}
