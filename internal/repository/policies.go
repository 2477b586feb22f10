package repository

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

const policyColumns = `SELECT id, name, start_time, end_time, threshold_kwh, scope, enabled FROM energy_policies`

func (r *Repos) CreatePolicy(ctx context.Context, p *domain.Policy) error {
	err := r.db.QueryRowxContext(ctx,
		r.q(`INSERT INTO energy_policies (name, start_time, end_time, threshold_kwh, scope, enabled)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		p.Name, p.StartTime, p.EndTime, p.ThresholdKWh, string(p.Scope), p.Enabled).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create policy: %w", err)
	}
	return nil
}

func (r *Repos) GetPolicy(ctx context.Context, id int64) (domain.Policy, error) {
	var p domain.Policy
	if err := r.db.GetContext(ctx, &p, r.q(policyColumns+` WHERE id = ?`), id); err != nil {
		return p, notFound(err, "policy", id)
	}
	return p, nil
}

// ListPolicies returns every policy, newest first.
func (r *Repos) ListPolicies(ctx context.Context) ([]domain.Policy, error) {
	out := []domain.Policy{}
	if err := r.db.SelectContext(ctx, &out, policyColumns+` ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	return out, nil
}

// ListEnabledPolicies returns enabled policies in id order, which is the order
// they are enforced in.
func (r *Repos) ListEnabledPolicies(ctx context.Context) ([]domain.Policy, error) {
	out := []domain.Policy{}
	if err := r.db.SelectContext(ctx, &out, r.q(policyColumns+` WHERE enabled = ? ORDER BY id`), true); err != nil {
		return nil, fmt.Errorf("failed to list enabled policies: %w", err)
	}
	return out, nil
}

func (r *Repos) SetPolicyEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE energy_policies SET enabled = ? WHERE id = ?`), enabled, id)
	if err != nil {
		return fmt.Errorf("failed to update policy %d: %w", id, err)
	}
	return affected(res, "policy", id)
}

// RecordEnforcement switches the device off and appends the audit entry in
// one transaction.
func (r *Repos) RecordEnforcement(ctx context.Context, deviceID int64, e *domain.EnforcementLogEntry) error {
	e.EnforcedAt = utc(e.EnforcedAt)
	return r.guard(func() (err error) {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin enforcement on device %d: %w", deviceID, err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE devices SET status = ? WHERE id = ?`), false, deviceID)
		if err != nil {
			return fmt.Errorf("failed to switch off device %d: %w", deviceID, err)
		}
		if err = affected(res, "device", deviceID); err != nil {
			return err
		}
		err = tx.QueryRowxContext(ctx,
			tx.Rebind(`INSERT INTO policy_enforcement_logs
				(policy_name, device_name, owner_name, energy_consumed_kwh, threshold_kwh, enforced_at)
				VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			e.PolicyName, e.DeviceName, e.OwnerName, e.EnergyConsumedKWh, e.ThresholdKWh, e.EnforcedAt).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("failed to insert enforcement log: %w", err)
		}
		return tx.Commit()
	})
}

// ListEnforcements returns the audit trail, most recent first.
func (r *Repos) ListEnforcements(ctx context.Context) ([]domain.EnforcementLogEntry, error) {
	out := []domain.EnforcementLogEntry{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, policy_name, device_name, owner_name, energy_consumed_kwh, threshold_kwh, enforced_at
		FROM policy_enforcement_logs
		ORDER BY enforced_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enforcement logs: %w", err)
	}
	return out, nil
}
