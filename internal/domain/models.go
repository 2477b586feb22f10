package domain

import "time"

type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Device is a simulated power consumer. OwnerName is filled from the owner
// directory when the device is read; nil means the owner is missing.
type Device struct {
	ID          int64   `db:"id" json:"id"`
	OwnerID     *int64  `db:"owner_id" json:"owner_id"`
	OwnerName   *string `db:"owner_name" json:"owner_name,omitempty"`
	Name        string  `db:"name" json:"name"`
	Type        string  `db:"type" json:"type"`
	Location    string  `db:"location" json:"location"`
	PowerRating float64 `db:"power_rating" json:"power_rating"` // watts
	Status      bool    `db:"status" json:"status"`
}

// HasOwner reports whether the device references an owner that still exists.
func (d Device) HasOwner() bool {
	return d.OwnerID != nil && d.OwnerName != nil
}

func (d Device) OwnedBy(userID int64) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}

type UsageRecord struct {
	ID         int64     `db:"id" json:"id"`
	DeviceID   int64     `db:"device_id" json:"device_id"`
	EnergyKWh  float64   `db:"energy_kwh" json:"energy_kwh"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}

type Schedule struct {
	ID       int64      `db:"id" json:"id"`
	DeviceID int64      `db:"device_id" json:"device_id"`
	OnTime   *TimeOfDay `db:"on_time" json:"on_time"`
	OffTime  *TimeOfDay `db:"off_time" json:"off_time"`
	Enabled  bool       `db:"enabled" json:"enabled"`
}

type PolicyScope string

const (
	ScopeAllUsers       PolicyScope = "ALL_USERS"
	ScopeHighUsageUsers PolicyScope = "HIGH_USAGE_USERS"
)

func (s PolicyScope) Valid() bool {
	return s == ScopeAllUsers || s == ScopeHighUsageUsers
}

type Policy struct {
	ID           int64       `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	StartTime    TimeOfDay   `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay   `db:"end_time" json:"end_time"`
	ThresholdKWh float64     `db:"threshold_kwh" json:"threshold_kwh"`
	Scope        PolicyScope `db:"scope" json:"scope"`
	Enabled      bool        `db:"enabled" json:"enabled"`
}

// ActiveAt reports whether t falls inside the policy window. Both ends are
// inclusive and seconds are ignored, so with a sub-minute tick 23:59:30 is
// still inside a window ending at 23:59.
func (p Policy) ActiveAt(t time.Time) bool {
	now := TimeOfDayOf(t)
	return now >= p.StartTime && now <= p.EndTime
}

// UnknownOwner is recorded when an enforced device has no resolvable owner.
const UnknownOwner = "UNKNOWN"

type EnforcementLogEntry struct {
	ID                int64     `db:"id" json:"id"`
	PolicyName        string    `db:"policy_name" json:"policy_name"`
	DeviceName        string    `db:"device_name" json:"device_name"`
	OwnerName         string    `db:"owner_name" json:"owner_name"`
	EnergyConsumedKWh float64   `db:"energy_consumed_kwh" json:"energy_consumed_kwh"`
	ThresholdKWh      float64   `db:"threshold_kwh" json:"threshold_kwh"`
	EnforcedAt        time.Time `db:"enforced_at" json:"enforced_at"`
}

type UsageLevel string

const (
	UsageLow    UsageLevel = "LOW"
	UsageMedium UsageLevel = "MEDIUM"
	UsageHigh   UsageLevel = "HIGH"
)

// LevelFor buckets a today-total into a usage level given the band limits.
func LevelFor(kwh, medium, high float64) UsageLevel {
	switch {
	case kwh < medium:
		return UsageLow
	case kwh < high:
		return UsageMedium
	default:
		return UsageHigh
	}
}

// DeviceEnergy is a named energy total, used by the top-consumers view.
type DeviceEnergy struct {
	DeviceID  int64   `db:"device_id" json:"device_id"`
	Name      string  `db:"name" json:"name"`
	EnergyKWh float64 `db:"energy_kwh" json:"energy_kwh"`
}
