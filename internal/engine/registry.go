package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

// Registry is the authority for device state. Every status change and every
// deletion runs inside the device's exclusive section, so a read-decide-write
// cycle can never be interleaved with another writer on the same device.
type Registry struct {
	store     DeviceStore
	clock     clock.Clock
	locks     *deviceLocks
	listeners []StatusListener
	log       zerolog.Logger
}

func NewRegistry(store DeviceStore, clk clock.Clock, log zerolog.Logger) *Registry {
	return &Registry{
		store: store,
		clock: clk,
		locks: newDeviceLocks(),
		log:   log,
	}
}

// Subscribe registers a listener. It must be called before the registry is
// shared between goroutines.
func (r *Registry) Subscribe(l StatusListener) {
	r.listeners = append(r.listeners, l)
}

func (r *Registry) Get(ctx context.Context, id int64) (domain.Device, error) {
	return r.store.GetDevice(ctx, id)
}

func (r *Registry) ListAll(ctx context.Context) ([]domain.Device, error) {
	return r.store.ListDevices(ctx)
}

func (r *Registry) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Device, error) {
	return r.store.ListDevicesByOwner(ctx, ownerID)
}

// Create stores a new device. New devices always start switched off.
func (r *Registry) Create(ctx context.Context, d *domain.Device) error {
	d.Status = false
	return r.store.CreateDevice(ctx, d)
}

// Decision inspects the freshly read device and returns the status to commit.
// Returning apply=false leaves the device untouched.
type Decision func(d domain.Device) (status bool, apply bool, err error)

// Commit persists a decided status for d. The default commit writes the
// status alone.
type Commit func(ctx context.Context, d domain.Device, status bool) error

// Mutate reads the device, asks decide what to do and commits the result, all
// while holding the device's lock. It reports the device as committed and
// whether the status changed.
func (r *Registry) Mutate(ctx context.Context, id int64, source StatusSource, decide Decision) (domain.Device, bool, error) {
	return r.MutateWith(ctx, id, source, decide, nil)
}

// MutateWith is Mutate with a custom commit, for callers that must persist
// more than the status in the same write.
func (r *Registry) MutateWith(ctx context.Context, id int64, source StatusSource, decide Decision, commit Commit) (domain.Device, bool, error) {
	unlock := r.locks.lock(id)
	d, changed, err := r.mutateLocked(ctx, id, decide, commit)
	unlock()

	if changed {
		r.notify(ctx, d, source)
	}
	return d, changed, err
}

func (r *Registry) mutateLocked(ctx context.Context, id int64, decide Decision, commit Commit) (domain.Device, bool, error) {
	d, err := r.store.GetDevice(ctx, id)
	if err != nil {
		return d, false, err
	}
	status, apply, err := decide(d)
	if err != nil || !apply || status == d.Status {
		return d, false, err
	}
	if commit == nil {
		err = r.store.UpdateDeviceStatus(ctx, id, status)
	} else {
		err = commit(ctx, d, status)
	}
	if err != nil {
		return d, false, err
	}
	d.Status = status
	return d, true, nil
}

// Inspect runs fn on the freshly read device while holding its lock, so fn
// cannot race a status change or a deletion of the same device.
func (r *Registry) Inspect(ctx context.Context, id int64, fn func(domain.Device) error) error {
	unlock := r.locks.lock(id)
	defer unlock()

	d, err := r.store.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	return fn(d)
}

// SetStatus sets the device's status. Setting the current status is a no-op.
func (r *Registry) SetStatus(ctx context.Context, id int64, status bool, source StatusSource) (domain.Device, error) {
	d, _, err := r.Mutate(ctx, id, source, func(domain.Device) (bool, bool, error) {
		return status, true, nil
	})
	return d, err
}

// Toggle flips the device's status based on its current committed value.
func (r *Registry) Toggle(ctx context.Context, id int64, source StatusSource) (domain.Device, error) {
	d, _, err := r.Mutate(ctx, id, source, func(cur domain.Device) (bool, bool, error) {
		return !cur.Status, true, nil
	})
	return d, err
}

// Delete removes the device together with its usage and schedules. authorize
// sees the device under the lock and may veto the deletion.
func (r *Registry) Delete(ctx context.Context, id int64, authorize func(domain.Device) error) error {
	unlock := r.locks.lock(id)
	defer unlock()

	d, err := r.store.GetDevice(ctx, id)
	if err != nil {
		return err
	}
	if authorize != nil {
		if err := authorize(d); err != nil {
			return err
		}
	}
	if err := r.store.DeleteDeviceCascade(ctx, id); err != nil {
		return fmt.Errorf("delete device %d: %w", id, err)
	}
	r.log.Info().Int64("device_id", id).Str("device", d.Name).Msg("device deleted")
	return nil
}

func (r *Registry) notify(ctx context.Context, d domain.Device, source StatusSource) {
	change := StatusChange{
		DeviceID: d.ID,
		OwnerID:  d.OwnerID,
		Status:   d.Status,
		Source:   source,
		At:       r.clock.Now(),
	}
	r.log.Debug().Int64("device_id", d.ID).Bool("status", d.Status).Str("source", string(source)).Msg("device status changed")
	for _, l := range r.listeners {
		l.StatusChanged(ctx, change)
	}
}
