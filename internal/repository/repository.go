package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
)

type Repos struct {
	db      *sqlx.DB
	breaker *gobreaker.CircuitBreaker
}

type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
}

func New(db *sqlx.DB, bs BreakerSettings) *Repos {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 3
	}
	if bs.Timeout == 0 {
		bs.Timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "storage-writes",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.MaxFailures
		},
	}
	return &Repos{db: db, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (r *Repos) DB() *sqlx.DB { return r.db }

// guard runs an append-style write through the circuit breaker so a failing
// database makes the rest of a tick fail fast. Errors caused by the data
// itself do not count against the breaker.
func (r *Repos) guard(fn func() error) error {
	var permanent error
	_, err := r.breaker.Execute(func() (interface{}, error) {
		err := fn()
		if isPermanent(err) {
			permanent = err
			return nil, nil
		}
		return nil, err
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func isPermanent(err error) bool {
	return err != nil && (errors.Is(err, domain.ErrNotFound) || domain.IsValidation(err))
}

func (r *Repos) q(query string) string { return r.db.Rebind(query) }

func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}

// affected maps a zero-row update or delete to ErrNotFound.
func affected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, domain.ErrNotFound)
	}
	return nil
}

func utc(t time.Time) time.Time { return t.UTC() }

func (r *Repos) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }
