package engine

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

const DefaultRelayBuffer = 256

// Relay queues status changes and enforcements for slow sinks such as the
// broker and the cloud, and delivers them in order on one goroutine. Callers
// never wait on a sink. When the queue is full the event is dropped.
type Relay struct {
	listeners []StatusListener
	notifiers []EnforcementNotifier
	log       zerolog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	events  chan relayEvent
	done    chan struct{}
}

type relayEvent struct {
	change *StatusChange
	entry  *domain.EnforcementLogEntry
}

func NewRelay(buffer int, log zerolog.Logger) *Relay {
	if buffer <= 0 {
		buffer = DefaultRelayBuffer
	}
	return &Relay{
		log:    log,
		events: make(chan relayEvent, buffer),
		done:   make(chan struct{}),
	}
}

// AddListener and AddNotifier must be called before Start.
func (r *Relay) AddListener(l StatusListener) {
	r.listeners = append(r.listeners, l)
}

func (r *Relay) AddNotifier(n EnforcementNotifier) {
	r.notifiers = append(r.notifiers, n)
}

func (r *Relay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	go r.run()
}

// Stop rejects new events and waits until the queued ones are delivered.
func (r *Relay) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	started := r.started
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

func (r *Relay) StatusChanged(_ context.Context, change StatusChange) {
	r.enqueue(relayEvent{change: &change})
}

func (r *Relay) Enforced(_ context.Context, entry domain.EnforcementLogEntry) {
	r.enqueue(relayEvent{entry: &entry})
}

func (r *Relay) enqueue(ev relayEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.events <- ev:
	default:
		r.log.Warn().Msg("relay queue full, event dropped")
	}
}

func (r *Relay) run() {
	defer close(r.done)
	// sinks outlive the request or tick that produced the event
	ctx := context.Background()
	for ev := range r.events {
		r.deliver(ctx, ev)
	}
}

func (r *Relay) deliver(ctx context.Context, ev relayEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Interface("panic", p).Msg("relay sink panicked")
		}
	}()
	if ev.change != nil {
		for _, l := range r.listeners {
			l.StatusChanged(ctx, *ev.change)
		}
	}
	if ev.entry != nil {
		for _, n := range r.notifiers {
			n.Enforced(ctx, *ev.entry)
		}
	}
}
