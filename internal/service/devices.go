package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

type DeviceService struct {
	repos    *repository.Repos
	registry *engine.Registry
	energy   *EnergyService
	log      zerolog.Logger
}

type CreateDeviceInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Type        string  `json:"type" validate:"max=50"`
	Location    string  `json:"location" validate:"max=100"`
	PowerRating float64 `json:"power_rating" validate:"gt=0"`
	// OwnerID is honoured for admins only; other callers always own what they create.
	OwnerID *int64 `json:"owner_id"`
}

// DeviceView is a device together with its energy figures for today.
type DeviceView struct {
	domain.Device
	TodayEnergyKWh float64           `json:"today_energy_kwh"`
	EstimatedCost  float64           `json:"estimated_cost"`
	UsageLevel     domain.UsageLevel `json:"usage_level"`
	PeakAlert      bool              `json:"peak_alert"`
}

func (s *DeviceService) Create(ctx context.Context, actor Actor, in CreateDeviceInput) (domain.Device, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return domain.Device{}, err
	}

	owner := actor.UserID
	if actor.Admin && in.OwnerID != nil {
		owner = *in.OwnerID
	}
	if _, err := s.repos.GetUser(ctx, owner); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Device{}, domain.Invalid(fmt.Sprintf("owner %d does not exist", owner))
		}
		return domain.Device{}, err
	}

	d := domain.Device{
		OwnerID:     &owner,
		Name:        in.Name,
		Type:        in.Type,
		Location:    in.Location,
		PowerRating: in.PowerRating,
	}
	if err := s.registry.Create(ctx, &d); err != nil {
		return domain.Device{}, err
	}
	s.log.Info().Int64("device_id", d.ID).Int64("owner_id", owner).Str("device", d.Name).Msg("device created")
	return s.registry.Get(ctx, d.ID)
}

// List returns every device for admins and the caller's own devices otherwise.
func (s *DeviceService) List(ctx context.Context, actor Actor) ([]DeviceView, error) {
	var (
		devices []domain.Device
		err     error
	)
	if actor.Admin {
		devices, err = s.registry.ListAll(ctx)
	} else {
		devices, err = s.registry.ListByOwner(ctx, actor.UserID)
	}
	if err != nil {
		return nil, err
	}

	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		v, err := s.energy.view(ctx, d)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *DeviceService) Get(ctx context.Context, actor Actor, id int64) (domain.Device, error) {
	d, err := s.registry.Get(ctx, id)
	if err != nil {
		return d, err
	}
	if !actor.canManage(d) {
		return domain.Device{}, fmt.Errorf("device %d: %w", id, ErrForbidden)
	}
	return d, nil
}

// Toggle flips the device. Ownership is checked against the state read under
// the device lock.
func (s *DeviceService) Toggle(ctx context.Context, actor Actor, id int64) (domain.Device, error) {
	d, _, err := s.registry.Mutate(ctx, id, engine.SourceManual, func(cur domain.Device) (bool, bool, error) {
		if !actor.canManage(cur) {
			return false, false, fmt.Errorf("device %d: %w", id, ErrForbidden)
		}
		return !cur.Status, true, nil
	})
	return d, err
}

func (s *DeviceService) SetStatus(ctx context.Context, actor Actor, id int64, on bool) (domain.Device, error) {
	d, _, err := s.registry.Mutate(ctx, id, engine.SourceManual, func(cur domain.Device) (bool, bool, error) {
		if !actor.canManage(cur) {
			return false, false, fmt.Errorf("device %d: %w", id, ErrForbidden)
		}
		return on, true, nil
	})
	return d, err
}

// Delete removes the device with its usage history and schedules.
func (s *DeviceService) Delete(ctx context.Context, actor Actor, id int64) error {
	return s.registry.Delete(ctx, id, func(d domain.Device) error {
		if !actor.canManage(d) {
			return fmt.Errorf("device %d: %w", id, ErrForbidden)
		}
		return nil
	})
}

type DeviceCounts struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

func (s *DeviceService) Counts(ctx context.Context, actor Actor) (DeviceCounts, error) {
	var owner *int64
	if !actor.Admin {
		owner = &actor.UserID
	}
	total, active, err := s.repos.CountDevices(ctx, owner)
	if err != nil {
		return DeviceCounts{}, err
	}
	return DeviceCounts{Total: total, Active: active}, nil
}
