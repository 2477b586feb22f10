// Package engine holds the periodic metering, scheduling and policy
// enforcement core together with the device registry it mutates.
package engine

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// The stores below are satisfied by *repository.Repos.

type DeviceStore interface {
	GetDevice(ctx context.Context, id int64) (domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
	ListDevicesByOwner(ctx context.Context, ownerID int64) ([]domain.Device, error)
	CreateDevice(ctx context.Context, d *domain.Device) error
	UpdateDeviceStatus(ctx context.Context, id int64, status bool) error
	DeleteDeviceCascade(ctx context.Context, id int64) error
}

type UsageStore interface {
	AppendUsage(ctx context.Context, rec *domain.UsageRecord) error
	SumDeviceUsage(ctx context.Context, deviceID int64, from, to time.Time) (float64, error)
	SumOwnerUsage(ctx context.Context, ownerID int64, from, to time.Time) (float64, error)
}

type ScheduleStore interface {
	ListEnabledSchedules(ctx context.Context) ([]domain.Schedule, error)
}

type PolicyStore interface {
	ListEnabledPolicies(ctx context.Context) ([]domain.Policy, error)
	// RecordEnforcement switches the device off and appends e atomically.
	RecordEnforcement(ctx context.Context, deviceID int64, e *domain.EnforcementLogEntry) error
}

// StatusSource names who changed a device's status.
type StatusSource string

const (
	SourceManual   StatusSource = "manual"
	SourceSchedule StatusSource = "schedule"
	SourcePolicy   StatusSource = "policy"
)

type StatusChange struct {
	DeviceID int64        `json:"device_id"`
	OwnerID  *int64       `json:"owner_id,omitempty"`
	Status   bool         `json:"status"`
	Source   StatusSource `json:"source"`
	At       time.Time    `json:"at"`
}

// StatusListener is told about every committed status change. Listeners run
// outside the device lock and must not block for long.
type StatusListener interface {
	StatusChanged(ctx context.Context, change StatusChange)
}

// EnforcementNotifier is told about every enforcement after its log entry is
// stored.
type EnforcementNotifier interface {
	Enforced(ctx context.Context, entry domain.EnforcementLogEntry)
}
