package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// memStore is an in-memory implementation of every engine store.
type memStore struct {
	mu         sync.Mutex
	users      map[int64]string
	devices    map[int64]domain.Device
	usage      []domain.UsageRecord
	schedules  []domain.Schedule
	policies   []domain.Policy
	logs       []domain.EnforcementLogEntry
	nextID     int64
	updates    int
	failAppend map[int64]bool
	failLogs   bool
	afterList  func()
	listErr    error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[int64]string{},
		devices:    map[int64]domain.Device{},
		failAppend: map[int64]bool{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.users[id] = name
	return id
}

func (m *memStore) addDevice(owner *int64, name string, watts float64, on bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.devices[id] = domain.Device{ID: id, OwnerID: owner, Name: name, Type: "appliance", PowerRating: watts, Status: on}
	return id
}

func (m *memStore) addSchedule(deviceID int64, on, off string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Schedule{ID: m.id(), DeviceID: deviceID, Enabled: true}
	if on != "" {
		t := domain.MustTimeOfDay(on)
		s.OnTime = &t
	}
	if off != "" {
		t := domain.MustTimeOfDay(off)
		s.OffTime = &t
	}
	m.schedules = append(m.schedules, s)
}

func (m *memStore) addPolicy(name, start, end string, threshold float64, enabled bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Policy{
		ID:           m.id(),
		Name:         name,
		StartTime:    domain.MustTimeOfDay(start),
		EndTime:      domain.MustTimeOfDay(end),
		ThresholdKWh: threshold,
		Scope:        domain.ScopeAllUsers,
		Enabled:      enabled,
	}
	m.policies = append(m.policies, p)
	return p.ID
}

func (m *memStore) resolve(d domain.Device) domain.Device {
	d.OwnerName = nil
	if d.OwnerID != nil {
		if name, ok := m.users[*d.OwnerID]; ok {
			d.OwnerName = &name
		}
	}
	return d
}

func (m *memStore) GetDevice(_ context.Context, id int64) (domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return d, fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	return m.resolve(d), nil
}

func (m *memStore) ListDevices(_ context.Context) ([]domain.Device, error) {
	m.mu.Lock()
	if m.listErr != nil {
		m.mu.Unlock()
		return nil, m.listErr
	}
	out := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, m.resolve(d))
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memStore) ListDevicesByOwner(ctx context.Context, ownerID int64) ([]domain.Device, error) {
	all, err := m.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.Device{}
	for _, d := range all {
		if d.OwnedBy(ownerID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) CreateDevice(_ context.Context, d *domain.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.id()
	m.devices[d.ID] = *d
	return nil
}

func (m *memStore) UpdateDeviceStatus(_ context.Context, id int64, status bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	d.Status = status
	m.devices[id] = d
	m.updates++
	return nil
}

func (m *memStore) DeleteDeviceCascade(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return fmt.Errorf("device %d: %w", id, domain.ErrNotFound)
	}
	usage := m.usage[:0]
	for _, u := range m.usage {
		if u.DeviceID != id {
			usage = append(usage, u)
		}
	}
	m.usage = usage
	schedules := m.schedules[:0]
	for _, s := range m.schedules {
		if s.DeviceID != id {
			schedules = append(schedules, s)
		}
	}
	m.schedules = schedules
	delete(m.devices, id)
	return nil
}

func (m *memStore) AppendUsage(_ context.Context, rec *domain.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend[rec.DeviceID] {
		return errors.New("disk full")
	}
	rec.ID = m.id()
	m.usage = append(m.usage, *rec)
	return nil
}

func (m *memStore) SumDeviceUsage(_ context.Context, deviceID int64, from, to time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, u := range m.usage {
		if u.DeviceID == deviceID && !u.RecordedAt.Before(from) && !u.RecordedAt.After(to) {
			total += u.EnergyKWh
		}
	}
	return total, nil
}

func (m *memStore) SumOwnerUsage(_ context.Context, ownerID int64, from, to time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total float64
	for _, u := range m.usage {
		d, ok := m.devices[u.DeviceID]
		if !ok || !d.OwnedBy(ownerID) {
			continue
		}
		if !u.RecordedAt.Before(from) && !u.RecordedAt.After(to) {
			total += u.EnergyKWh
		}
	}
	return total, nil
}

func (m *memStore) ListEnabledSchedules(_ context.Context) ([]domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Schedule{}
	for _, s := range m.schedules {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) ListEnabledPolicies(_ context.Context) ([]domain.Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Policy{}
	for _, p := range m.policies {
		if p.Enabled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) RecordEnforcement(_ context.Context, deviceID int64, e *domain.EnforcementLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLogs {
		return errors.New("disk full")
	}
	d, ok := m.devices[deviceID]
	if !ok {
		return fmt.Errorf("device %d: %w", deviceID, domain.ErrNotFound)
	}
	d.Status = false
	m.devices[deviceID] = d
	m.updates++
	e.ID = m.id()
	m.logs = append(m.logs, *e)
	return nil
}

func (m *memStore) status(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices[id].Status
}

func (m *memStore) usageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usage)
}

func (m *memStore) logEntries() []domain.EnforcementLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EnforcementLogEntry(nil), m.logs...)
}

type recordingListener struct {
	mu      sync.Mutex
	changes []StatusChange
}

func (r *recordingListener) StatusChanged(_ context.Context, c StatusChange) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []domain.EnforcementLogEntry
}

func (r *recordingNotifier) Enforced(_ context.Context, e domain.EnforcementLogEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

// harness wires a complete engine over a memStore.
type harness struct {
	store      *memStore
	registry   *Registry
	ledger     *Ledger
	meter      *Meter
	scheduler  *Scheduler
	enforcer   *Enforcer
	dispatcher *Dispatcher
}

var testDay = time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

func at(hhmm string) time.Time {
	return testDay.Add(time.Duration(domain.MustTimeOfDay(hhmm)) * time.Minute)
}

func newHarness(interval time.Duration) *harness {
	log := zerolog.Nop()
	store := newMemStore()
	clk := clock.NewFake(testDay)
	h := &harness{store: store}
	h.registry = NewRegistry(store, clk, log)
	h.ledger = NewLedger(store)
	h.meter = NewMeter(h.registry, h.ledger, log)
	h.scheduler = NewScheduler(store, h.registry, log)
	h.enforcer = NewEnforcer(store, h.registry, h.ledger, log)
	h.dispatcher = NewDispatcher(interval, clk, time.UTC, h.meter, h.scheduler, h.enforcer, log)
	return h
}
