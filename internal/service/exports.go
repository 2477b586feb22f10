package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

// UsageUploader stores an export document under key. It is satisfied by
// *cloud.S3Client.
type UsageUploader interface {
	UploadUsageExport(ctx context.Context, key string, body []byte) error
}

type ExportService struct {
	repos    *repository.Repos
	clock    clock.Clock
	uploader UsageUploader
	log      zerolog.Logger
}

type UsageExport struct {
	Date        string                `json:"date"`
	GeneratedAt time.Time             `json:"generated_at"`
	TotalKWh    float64               `json:"total_kwh"`
	Devices     []domain.DeviceEnergy `json:"devices"`
}

type ExportResult struct {
	Key      string  `json:"key"`
	Devices  int     `json:"devices"`
	TotalKWh float64 `json:"total_kwh"`
}

// ExportUsage uploads the per-device usage of one local day as JSON. An empty
// date means today.
func (s *ExportService) ExportUsage(ctx context.Context, actor Actor, date string) (ExportResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return ExportResult{}, err
	}
	if s.uploader == nil {
		return ExportResult{}, ErrExportDisabled
	}

	now := s.clock.Now()
	from := clock.StartOfDay(now)
	if date != "" {
		d, err := time.ParseInLocation("2006-01-02", date, now.Location())
		if err != nil {
			return ExportResult{}, domain.Invalid(fmt.Sprintf("date %q must be YYYY-MM-DD", date))
		}
		from = d
	}
	to := from.AddDate(0, 0, 1).Add(-time.Nanosecond)
	if to.After(now) {
		to = now
	}

	devices, err := s.repos.UsageByDevice(ctx, from, to, 0)
	if err != nil {
		return ExportResult{}, err
	}
	doc := UsageExport{
		Date:        from.Format("2006-01-02"),
		GeneratedAt: now,
		Devices:     devices,
	}
	for _, d := range devices {
		doc.TotalKWh += d.EnergyKWh
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode usage export: %w", err)
	}
	key := fmt.Sprintf("usage/%s.json", doc.Date)
	if err := s.uploader.UploadUsageExport(ctx, key, body); err != nil {
		return ExportResult{}, err
	}

	s.log.Info().Str("key", key).Int("devices", len(devices)).Float64("total_kwh", doc.TotalKWh).Msg("usage exported")
	return ExportResult{Key: key, Devices: len(devices), TotalKWh: doc.TotalKWh}, nil
}
