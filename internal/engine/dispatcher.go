package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
)

type stage struct {
	name string
	run  func(ctx context.Context, start, end time.Time) error
}

// Dispatcher drives the engine: on every tick boundary it runs the meter, the
// scheduler and the enforcer, in that order, on a single goroutine.
type Dispatcher struct {
	interval time.Duration
	clock    clock.Clock
	stages   []stage
	log      zerolog.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	lastEnd time.Time
}

func NewDispatcher(interval time.Duration, clk clock.Clock, loc *time.Location, m *Meter, s *Scheduler, e *Enforcer, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		interval: interval,
		clock:    clk,
		log:      log,
		stages: []stage{
			{name: "meter", run: m.Accumulate},
			{name: "scheduler", run: func(ctx context.Context, _, end time.Time) error { return s.Apply(ctx, end) }},
			{name: "enforcer", run: func(ctx context.Context, _, end time.Time) error { return e.Enforce(ctx, end) }},
		},
	}

	if loc == nil {
		loc = time.Local
	}
	cl := cronLogger{log: log}
	d.cron = cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
	)
	return d
}

// cronSpec builds a seconds-field cron expression firing on every multiple of
// interval within the minute.
func cronSpec(interval time.Duration) string {
	secs := int(interval / time.Second)
	if secs >= 60 {
		return "0 * * * * *"
	}
	return fmt.Sprintf("*/%d * * * * *", secs)
}

func (d *Dispatcher) Start() error {
	_, err := d.cron.AddFunc(cronSpec(d.interval), func() {
		end := d.clock.Now().Round(d.interval)
		d.Tick(context.Background(), end)
	})
	if err != nil {
		return fmt.Errorf("schedule tick: %w", err)
	}
	d.cron.Start()
	d.log.Info().Dur("interval", d.interval).Msg("tick dispatcher started")
	return nil
}

// Stop halts the schedule and blocks until an in-flight tick has finished.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
	d.log.Info().Msg("tick dispatcher stopped")
}

// Tick runs every stage for the boundary ending at end. A boundary that is not
// later than the previous one is skipped, so each boundary runs at most once.
// It reports whether the tick ran.
func (d *Dispatcher) Tick(ctx context.Context, end time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastEnd.IsZero() && !end.After(d.lastEnd) {
		d.log.Warn().Time("boundary", end).Msg("tick boundary already processed")
		return false
	}
	d.lastEnd = end

	start := end.Add(-d.interval)
	log := d.log.With().Str("tick_id", uuid.NewString()).Time("boundary", end).Logger()
	began := time.Now()
	for _, st := range d.stages {
		d.runStage(ctx, log, st, start, end)
	}
	log.Debug().Dur("took", time.Since(began)).Msg("tick complete")
	return true
}

func (d *Dispatcher) runStage(ctx context.Context, log zerolog.Logger, st stage, start, end time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stage", st.name).Interface("panic", r).Msg("tick stage panicked")
		}
	}()
	if err := st.run(ctx, start, end); err != nil {
		log.Error().Err(err).Str("stage", st.name).Msg("tick stage failed")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
