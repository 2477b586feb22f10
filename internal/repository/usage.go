package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

func (r *Repos) AppendUsage(ctx context.Context, rec *domain.UsageRecord) error {
	rec.RecordedAt = utc(rec.RecordedAt)
	return r.guard(func() error {
		err := r.db.QueryRowxContext(ctx,
			r.q(`INSERT INTO usage_records (device_id, energy_kwh, recorded_at) VALUES (?, ?, ?) RETURNING id`),
			rec.DeviceID, rec.EnergyKWh, rec.RecordedAt).Scan(&rec.ID)
		if err != nil {
			return fmt.Errorf("failed to insert usage for device %d: %w", rec.DeviceID, err)
		}
		return nil
	})
}

// SumDeviceUsage totals a device's usage with from <= recorded_at <= to.
func (r *Repos) SumDeviceUsage(ctx context.Context, deviceID int64, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, r.q(`
		SELECT COALESCE(SUM(energy_kwh), 0)
		FROM usage_records
		WHERE device_id = ? AND recorded_at >= ? AND recorded_at <= ?`),
		deviceID, utc(from), utc(to))
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage for device %d: %w", deviceID, err)
	}
	return total, nil
}

func (r *Repos) SumOwnerUsage(ctx context.Context, ownerID int64, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, r.q(`
		SELECT COALESCE(SUM(u.energy_kwh), 0)
		FROM usage_records u
		JOIN devices d ON d.id = u.device_id
		WHERE d.owner_id = ? AND u.recorded_at >= ? AND u.recorded_at <= ?`),
		ownerID, utc(from), utc(to))
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage for owner %d: %w", ownerID, err)
	}
	return total, nil
}

func (r *Repos) SumUsage(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.GetContext(ctx, &total, r.q(`
		SELECT COALESCE(SUM(energy_kwh), 0)
		FROM usage_records
		WHERE recorded_at >= ? AND recorded_at <= ?`),
		utc(from), utc(to))
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage: %w", err)
	}
	return total, nil
}

// UsageByDevice returns per-device totals in the window, highest first.
// A non-positive limit returns every device with usage.
func (r *Repos) UsageByDevice(ctx context.Context, from, to time.Time, limit int) ([]domain.DeviceEnergy, error) {
	query := `
		SELECT d.id AS device_id, d.name AS name, COALESCE(SUM(u.energy_kwh), 0) AS energy_kwh
		FROM usage_records u
		JOIN devices d ON d.id = u.device_id
		WHERE u.recorded_at >= ? AND u.recorded_at <= ?
		GROUP BY d.id, d.name
		ORDER BY energy_kwh DESC, d.id`
	args := []interface{}{utc(from), utc(to)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	out := []domain.DeviceEnergy{}
	if err := r.db.SelectContext(ctx, &out, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to aggregate usage by device: %w", err)
	}
	return out, nil
}

func (r *Repos) ListDeviceUsage(ctx context.Context, deviceID int64) ([]domain.UsageRecord, error) {
	out := []domain.UsageRecord{}
	err := r.db.SelectContext(ctx, &out, r.q(`
		SELECT id, device_id, energy_kwh, recorded_at
		FROM usage_records WHERE device_id = ? ORDER BY recorded_at, id`), deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage for device %d: %w", deviceID, err)
	}
	return out, nil
}
