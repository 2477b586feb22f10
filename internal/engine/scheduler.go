package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// Scheduler applies enabled on/off schedules at minute granularity.
type Scheduler struct {
	schedules ScheduleStore
	registry  *Registry
	log       zerolog.Logger
}

func NewScheduler(schedules ScheduleStore, registry *Registry, log zerolog.Logger) *Scheduler {
	return &Scheduler{schedules: schedules, registry: registry, log: log}
}

// Apply switches devices whose on or off time equals now's minute. The on
// check runs first, and the off check is skipped during the schedule's on
// minute so that on == off resolves to on for the whole minute.
func (s *Scheduler) Apply(ctx context.Context, now time.Time) error {
	schedules, err := s.schedules.ListEnabledSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}

	nowMin := domain.TimeOfDayOf(now)
	for _, sc := range schedules {
		onMinute := sc.OnTime != nil && *sc.OnTime == nowMin
		offMinute := sc.OffTime != nil && *sc.OffTime == nowMin && !onMinute

		if onMinute {
			s.switchTo(ctx, sc, true)
		}
		if offMinute {
			s.switchTo(ctx, sc, false)
		}
	}
	return nil
}

func (s *Scheduler) switchTo(ctx context.Context, sc domain.Schedule, on bool) {
	_, changed, err := s.registry.Mutate(ctx, sc.DeviceID, SourceSchedule, func(d domain.Device) (bool, bool, error) {
		return on, d.Status != on, nil
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.log.Debug().Int64("schedule_id", sc.ID).Int64("device_id", sc.DeviceID).Msg("schedule references missing device")
	case err != nil:
		s.log.Error().Err(err).Int64("schedule_id", sc.ID).Msg("failed to apply schedule")
	case changed:
		s.log.Info().Int64("schedule_id", sc.ID).Int64("device_id", sc.DeviceID).Bool("status", on).Msg("schedule applied")
	}
}
