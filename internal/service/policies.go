package service

import (
	"context"
	"strings"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

// PolicyService manages energy policies. Every operation is admin-only.
type PolicyService struct {
	repos    *repository.Repos
	enforcer *engine.Enforcer
	clock    clock.Clock
	settings Settings
}

type CreatePolicyInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	// ThresholdKWh falls back to the configured default when omitted.
	ThresholdKWh *float64 `json:"threshold_kwh"`
	Scope        string   `json:"scope" validate:"omitempty,oneof=ALL_USERS HIGH_USAGE_USERS"`
}

func (s *PolicyService) Create(ctx context.Context, actor Actor, in CreatePolicyInput) (domain.Policy, error) {
	if err := actor.requireAdmin(); err != nil {
		return domain.Policy{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return domain.Policy{}, err
	}

	start, err := domain.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return domain.Policy{}, domain.Invalid("start_time: " + err.Error())
	}
	end, err := domain.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return domain.Policy{}, domain.Invalid("end_time: " + err.Error())
	}
	if start > end {
		return domain.Policy{}, domain.Invalid("start_time must not be after end_time")
	}

	threshold := s.settings.DefaultPolicyThresholdKWh
	if in.ThresholdKWh != nil {
		threshold = *in.ThresholdKWh
	}
	if threshold <= 0 {
		return domain.Policy{}, domain.Invalid("threshold_kwh must be greater than 0")
	}

	scope := domain.ScopeAllUsers
	if in.Scope != "" {
		scope = domain.PolicyScope(in.Scope)
	}

	p := domain.Policy{
		Name:         in.Name,
		StartTime:    start,
		EndTime:      end,
		ThresholdKWh: threshold,
		Scope:        scope,
		Enabled:      true,
	}
	if err := s.repos.CreatePolicy(ctx, &p); err != nil {
		return domain.Policy{}, err
	}
	return p, nil
}

func (s *PolicyService) List(ctx context.Context, actor Actor) ([]domain.Policy, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.repos.ListPolicies(ctx)
}

func (s *PolicyService) Toggle(ctx context.Context, actor Actor, id int64) (domain.Policy, error) {
	if err := actor.requireAdmin(); err != nil {
		return domain.Policy{}, err
	}
	p, err := s.repos.GetPolicy(ctx, id)
	if err != nil {
		return p, err
	}
	p.Enabled = !p.Enabled
	if err := s.repos.SetPolicyEnabled(ctx, id, p.Enabled); err != nil {
		return domain.Policy{}, err
	}
	return p, nil
}

// ActivePolicyIDs lists the ids of the policies the enforcer would apply now.
func (s *PolicyService) ActivePolicyIDs(ctx context.Context, actor Actor) ([]int64, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	active, err := s.enforcer.ActivePolicies(ctx, s.clock.Now())
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(active))
	for _, p := range active {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *PolicyService) EnforcementLogs(ctx context.Context, actor Actor) ([]domain.EnforcementLogEntry, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.repos.ListEnforcements(ctx)
}
