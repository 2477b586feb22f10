package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// Meter converts the power draw of every switched-on device into energy
// increments, one per tick.
type Meter struct {
	registry *Registry
	ledger   *Ledger
	log      zerolog.Logger
}

func NewMeter(registry *Registry, ledger *Ledger, log zerolog.Logger) *Meter {
	return &Meter{registry: registry, ledger: ledger, log: log}
}

// EnergyKWh is the energy a device rated at watts draws over d.
func EnergyKWh(watts float64, d time.Duration) float64 {
	return watts / 1000 * d.Hours()
}

// Accumulate records usage for the interval (start, end], stamped at end.
// Devices without a resolvable owner are not metered. Each append runs under
// the device's lock so it cannot interleave with the device's deletion.
func (m *Meter) Accumulate(ctx context.Context, start, end time.Time) error {
	devices, err := m.registry.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}

	elapsed := end.Sub(start)
	recorded := 0
	for _, d := range devices {
		if !d.Status {
			continue
		}
		if !d.HasOwner() {
			m.log.Debug().Int64("device_id", d.ID).Msg("skipping device without owner")
			continue
		}
		var metered bool
		err := m.registry.Inspect(ctx, d.ID, func(cur domain.Device) error {
			if !cur.Status || !cur.HasOwner() {
				return nil
			}
			metered = true
			return m.ledger.Append(ctx, cur.ID, EnergyKWh(cur.PowerRating, elapsed), end)
		})
		switch {
		case errors.Is(err, domain.ErrNotFound):
			m.log.Debug().Int64("device_id", d.ID).Msg("device removed before metering")
			continue
		case err != nil:
			m.log.Error().Err(err).Int64("device_id", d.ID).Msg("failed to record usage")
			continue
		case !metered:
			continue
		}
		recorded++
	}

	m.log.Debug().Int("devices", recorded).Time("at", end).Msg("usage recorded")
	return nil
}
