package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// Enforcer switches off devices whose energy today exceeds the threshold of an
// active policy and records each intervention.
type Enforcer struct {
	policies  PolicyStore
	registry  *Registry
	ledger    *Ledger
	notifiers []EnforcementNotifier
	log       zerolog.Logger
}

func NewEnforcer(policies PolicyStore, registry *Registry, ledger *Ledger, log zerolog.Logger) *Enforcer {
	return &Enforcer{policies: policies, registry: registry, ledger: ledger, log: log}
}

// Notify adds a notifier. It must be called before the dispatcher starts.
func (e *Enforcer) Notify(n EnforcementNotifier) {
	e.notifiers = append(e.notifiers, n)
}

// ActivePolicies returns the enabled policies whose window contains now, in
// enforcement order.
func (e *Enforcer) ActivePolicies(ctx context.Context, now time.Time) ([]domain.Policy, error) {
	policies, err := e.policies.ListEnabledPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	active := policies[:0]
	for _, p := range policies {
		if p.ActiveAt(now) {
			active = append(active, p)
		}
	}
	return active, nil
}

func (e *Enforcer) Enforce(ctx context.Context, now time.Time) error {
	active, err := e.ActivePolicies(ctx, now)
	if err != nil {
		return err
	}
	for _, p := range active {
		if err := e.enforcePolicy(ctx, p, now); err != nil {
			e.log.Error().Err(err).Str("policy", p.Name).Msg("policy enforcement failed")
		}
	}
	return nil
}

func (e *Enforcer) enforcePolicy(ctx context.Context, p domain.Policy, now time.Time) error {
	devices, err := e.registry.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	for _, d := range devices {
		if !d.Status {
			continue
		}

		var entry domain.EnforcementLogEntry
		decide := func(cur domain.Device) (bool, bool, error) {
			if !cur.Status {
				return false, false, nil
			}
			total, err := e.ledger.TodayEnergy(ctx, cur.ID, now)
			if err != nil {
				return false, false, err
			}
			entry.EnergyConsumedKWh = total
			return false, total > p.ThresholdKWh, nil
		}
		// The device only goes off together with its log entry.
		commit := func(ctx context.Context, cur domain.Device, _ bool) error {
			entry.PolicyName = p.Name
			entry.DeviceName = cur.Name
			entry.OwnerName = ownerName(cur)
			entry.ThresholdKWh = p.ThresholdKWh
			entry.EnforcedAt = now
			return e.policies.RecordEnforcement(ctx, cur.ID, &entry)
		}

		dev, changed, err := e.registry.MutateWith(ctx, d.ID, SourcePolicy, decide, commit)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			e.log.Debug().Int64("device_id", d.ID).Str("policy", p.Name).Msg("device removed before enforcement")
			continue
		case err != nil:
			e.log.Error().Err(err).Int64("device_id", d.ID).Str("policy", p.Name).Msg("failed to enforce policy")
			continue
		case !changed:
			continue
		}

		e.log.Warn().
			Str("policy", p.Name).
			Str("device", dev.Name).
			Float64("energy_kwh", entry.EnergyConsumedKWh).
			Float64("threshold_kwh", p.ThresholdKWh).
			Msg("device switched off by policy")

		for _, n := range e.notifiers {
			n.Enforced(ctx, entry)
		}
	}
	return nil
}

func ownerName(d domain.Device) string {
	if d.OwnerName == nil || *d.OwnerName == "" {
		return domain.UnknownOwner
	}
	return *d.OwnerName
}
