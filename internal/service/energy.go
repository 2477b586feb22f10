package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/engine"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

type EnergyService struct {
	repos    *repository.Repos
	ledger   *engine.Ledger
	clock    clock.Clock
	settings Settings
}

type EnergyReport struct {
	DeviceID      *int64            `json:"device_id,omitempty"`
	UserID        *int64            `json:"user_id,omitempty"`
	EnergyKWh     float64           `json:"energy_kwh"`
	EstimatedCost float64           `json:"estimated_cost"`
	UsageLevel    domain.UsageLevel `json:"usage_level"`
	PeakAlert     bool              `json:"peak_alert"`
	At            time.Time         `json:"at"`
}

func (s *EnergyService) cost(kwh float64) float64 {
	return kwh * s.settings.EnergyRate
}

func (s *EnergyService) level(kwh float64) domain.UsageLevel {
	return domain.LevelFor(kwh, s.settings.UsageMediumKWh, s.settings.UsageHighKWh)
}

// DeviceToday reports the device's energy since local midnight.
func (s *EnergyService) DeviceToday(ctx context.Context, actor Actor, deviceID int64) (EnergyReport, error) {
	d, err := s.repos.GetDevice(ctx, deviceID)
	if err != nil {
		return EnergyReport{}, err
	}
	if !actor.canManage(d) {
		return EnergyReport{}, fmt.Errorf("device %d: %w", deviceID, ErrForbidden)
	}

	now := s.clock.Now()
	kwh, err := s.ledger.TodayEnergy(ctx, deviceID, now)
	if err != nil {
		return EnergyReport{}, err
	}
	return EnergyReport{
		DeviceID:      &d.ID,
		EnergyKWh:     kwh,
		EstimatedCost: s.cost(kwh),
		UsageLevel:    s.level(kwh),
		PeakAlert:     kwh > s.settings.PeakDeviceKWh,
		At:            now,
	}, nil
}

// OwnerToday reports the energy of all of an owner's devices since local
// midnight. Owners may only read their own total.
func (s *EnergyService) OwnerToday(ctx context.Context, actor Actor, ownerID int64) (EnergyReport, error) {
	if !actor.Admin && actor.UserID != ownerID {
		return EnergyReport{}, fmt.Errorf("user %d: %w", ownerID, ErrForbidden)
	}
	if _, err := s.repos.GetUser(ctx, ownerID); err != nil {
		return EnergyReport{}, err
	}

	now := s.clock.Now()
	kwh, err := s.ledger.TodayEnergyForOwner(ctx, ownerID, now)
	if err != nil {
		return EnergyReport{}, err
	}
	return EnergyReport{
		UserID:        &ownerID,
		EnergyKWh:     kwh,
		EstimatedCost: s.cost(kwh),
		UsageLevel:    s.level(kwh),
		PeakAlert:     kwh >= s.settings.PeakUserKWh,
		At:            now,
	}, nil
}

func (s *EnergyService) view(ctx context.Context, d domain.Device) (DeviceView, error) {
	kwh, err := s.ledger.TodayEnergy(ctx, d.ID, s.clock.Now())
	if err != nil {
		return DeviceView{}, err
	}
	return DeviceView{
		Device:         d,
		TodayEnergyKWh: kwh,
		EstimatedCost:  s.cost(kwh),
		UsageLevel:     s.level(kwh),
		PeakAlert:      kwh > s.settings.PeakDeviceKWh,
	}, nil
}

type DailyUsage struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
}

type UserUsage struct {
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	EnergyKWh float64 `json:"energy_kwh"`
}

type Analytics struct {
	GeneratedAt     time.Time             `json:"generated_at"`
	TodayKWh        float64               `json:"today_kwh"`
	TodayCost       float64               `json:"today_cost"`
	WeekKWh         float64               `json:"week_kwh"`
	Last7DaysKWh    float64               `json:"last_7_days_kwh"`
	Last7DaysMWh    float64               `json:"last_7_days_mwh"`
	DailyAverageKWh float64               `json:"daily_average_kwh"`
	Daily           []DailyUsage          `json:"daily"`
	TopDevices      []domain.DeviceEnergy `json:"top_devices"`
	TotalDevices    int64                 `json:"total_devices"`
	ActiveDevices   int64                 `json:"active_devices"`
	PeakUsers       []UserUsage           `json:"peak_users"`
	Recommendations []string              `json:"recommendations"`
}

const topDeviceCount = 5

// Analytics builds the admin overview of system-wide consumption.
func (s *EnergyService) Analytics(ctx context.Context, actor Actor) (Analytics, error) {
	if err := actor.requireAdmin(); err != nil {
		return Analytics{}, err
	}

	now := s.clock.Now()
	today := clock.StartOfDay(now)
	out := Analytics{GeneratedAt: now}

	var err error
	if out.TodayKWh, err = s.repos.SumUsage(ctx, today, now); err != nil {
		return Analytics{}, err
	}
	out.TodayCost = s.cost(out.TodayKWh)

	weekday := (int(today.Weekday()) + 6) % 7
	if out.WeekKWh, err = s.repos.SumUsage(ctx, today.AddDate(0, 0, -weekday), now); err != nil {
		return Analytics{}, err
	}

	points := make([]aggregator.Point, 0, 7)
	for i := 6; i >= 0; i-- {
		from := today.AddDate(0, 0, -i)
		to := from.AddDate(0, 0, 1).Add(-time.Nanosecond)
		if i == 0 {
			to = now
		}
		kwh, err := s.repos.SumUsage(ctx, from, to)
		if err != nil {
			return Analytics{}, err
		}
		out.Daily = append(out.Daily, DailyUsage{Date: from.Format("2006-01-02"), EnergyKWh: kwh})
		points = append(points, aggregator.Point{Value: kwh, Timestamp: from})
	}
	out.Last7DaysKWh = aggregator.Sum(points)
	out.DailyAverageKWh = aggregator.Average(points)
	conv := &converter.EnergyConverter{}
	out.Last7DaysMWh = conv.KWhToMWh(out.Last7DaysKWh)

	if out.TopDevices, err = s.repos.UsageByDevice(ctx, today, now, topDeviceCount); err != nil {
		return Analytics{}, err
	}
	if out.TotalDevices, out.ActiveDevices, err = s.repos.CountDevices(ctx, nil); err != nil {
		return Analytics{}, err
	}

	users, err := s.repos.ListUsers(ctx)
	if err != nil {
		return Analytics{}, err
	}
	out.PeakUsers = []UserUsage{}
	for _, u := range users {
		kwh, err := s.ledger.TodayEnergyForOwner(ctx, u.ID, now)
		if err != nil {
			return Analytics{}, err
		}
		if kwh >= s.settings.PeakUserKWh {
			out.PeakUsers = append(out.PeakUsers, UserUsage{UserID: u.ID, Name: u.Name, EnergyKWh: kwh})
		}
	}

	out.Recommendations = s.recommend(out)
	return out, nil
}

func (s *EnergyService) recommend(a Analytics) []string {
	recs := []string{}
	for _, d := range a.TopDevices {
		if d.EnergyKWh > s.settings.PeakDeviceKWh {
			recs = append(recs, fmt.Sprintf("%s used %.2f kWh today; schedule it outside peak hours", d.Name, d.EnergyKWh))
		}
	}
	if len(a.PeakUsers) > 0 {
		recs = append(recs, fmt.Sprintf("%d user(s) exceeded %.1f kWh today; consider an energy policy", len(a.PeakUsers), s.settings.PeakUserKWh))
	}
	if a.TotalDevices > 0 && a.ActiveDevices*2 > a.TotalDevices {
		recs = append(recs, "More than half of all devices are on; review schedules for idle devices")
	}
	if a.DailyAverageKWh > 0 && a.TodayKWh > 1.5*a.DailyAverageKWh {
		recs = append(recs, "Today's consumption is well above the 7 day average")
	}
	if len(recs) == 0 {
		recs = append(recs, "Energy usage is within normal limits")
	}
	return recs
}
