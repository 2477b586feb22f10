package service

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

type ScheduleService struct {
	repos    *repository.Repos
	registry *engine.Registry
}

// CreateScheduleInput takes times as "HH:MM"; at least one of them is required.
type CreateScheduleInput struct {
	DeviceID int64   `json:"device_id" validate:"required"`
	OnTime   *string `json:"on_time"`
	OffTime  *string `json:"off_time"`
}

func parseOptionalTime(field string, s *string) (*domain.TimeOfDay, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := domain.ParseTimeOfDay(*s)
	if err != nil {
		return nil, domain.Invalid(fmt.Sprintf("%s: %v", field, err))
	}
	return &t, nil
}

func (s *ScheduleService) Create(ctx context.Context, actor Actor, in CreateScheduleInput) (domain.Schedule, error) {
	if err := check(in); err != nil {
		return domain.Schedule{}, err
	}
	on, err := parseOptionalTime("on_time", in.OnTime)
	if err != nil {
		return domain.Schedule{}, err
	}
	off, err := parseOptionalTime("off_time", in.OffTime)
	if err != nil {
		return domain.Schedule{}, err
	}
	if on == nil && off == nil {
		return domain.Schedule{}, domain.Invalid("on_time or off_time is required")
	}

	if err := s.authorizeDevice(ctx, actor, in.DeviceID); err != nil {
		return domain.Schedule{}, err
	}

	sc := domain.Schedule{DeviceID: in.DeviceID, OnTime: on, OffTime: off, Enabled: true}
	if err := s.repos.CreateSchedule(ctx, &sc); err != nil {
		return domain.Schedule{}, err
	}
	return sc, nil
}

func (s *ScheduleService) List(ctx context.Context, actor Actor) ([]domain.Schedule, error) {
	if actor.Admin {
		return s.repos.ListSchedules(ctx)
	}
	return s.repos.ListSchedulesByOwner(ctx, actor.UserID)
}

func (s *ScheduleService) Toggle(ctx context.Context, actor Actor, id int64) (domain.Schedule, error) {
	sc, err := s.owned(ctx, actor, id)
	if err != nil {
		return sc, err
	}
	sc.Enabled = !sc.Enabled
	if err := s.repos.SetScheduleEnabled(ctx, id, sc.Enabled); err != nil {
		return domain.Schedule{}, err
	}
	return sc, nil
}

func (s *ScheduleService) Delete(ctx context.Context, actor Actor, id int64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	return s.repos.DeleteSchedule(ctx, id)
}

func (s *ScheduleService) owned(ctx context.Context, actor Actor, id int64) (domain.Schedule, error) {
	sc, err := s.repos.GetSchedule(ctx, id)
	if err != nil {
		return sc, err
	}
	if err := s.authorizeDevice(ctx, actor, sc.DeviceID); err != nil {
		return domain.Schedule{}, err
	}
	return sc, nil
}

func (s *ScheduleService) authorizeDevice(ctx context.Context, actor Actor, deviceID int64) error {
	d, err := s.registry.Get(ctx, deviceID)
	if err != nil {
		return err
	}
	if !actor.canManage(d) {
		return fmt.Errorf("device %d: %w", deviceID, ErrForbidden)
	}
	return nil
}
