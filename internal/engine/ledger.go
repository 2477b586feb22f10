package engine

import (
	"context"
	"math"
	"time"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// Totals are rounded to a micro-watt-hour. Stores sum with different float
// algorithms, and a threshold must not be crossed on accumulated rounding error.
const energyResolution = 1e9

func roundEnergy(kwh float64) float64 {
	return math.Round(kwh*energyResolution) / energyResolution
}

// Ledger is the append-only view over usage records. Totals are always
// recomputed from storage.
type Ledger struct {
	store UsageStore
}

func NewLedger(store UsageStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Append(ctx context.Context, deviceID int64, kwh float64, at time.Time) error {
	return l.store.AppendUsage(ctx, &domain.UsageRecord{
		DeviceID:   deviceID,
		EnergyKWh:  kwh,
		RecordedAt: at,
	})
}

// TodayEnergy sums the device's usage from local midnight of now's day up to
// and including now.
func (l *Ledger) TodayEnergy(ctx context.Context, deviceID int64, now time.Time) (float64, error) {
	total, err := l.store.SumDeviceUsage(ctx, deviceID, clock.StartOfDay(now), now)
	return roundEnergy(total), err
}

func (l *Ledger) TodayEnergyForOwner(ctx context.Context, ownerID int64, now time.Time) (float64, error) {
	total, err := l.store.SumOwnerUsage(ctx, ownerID, clock.StartOfDay(now), now)
	return roundEnergy(total), err
}
