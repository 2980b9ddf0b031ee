package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sony/gobreaker"
)

// Subsystem names the circuit breaker is keyed on. A read path and a
// write path fail independently so a stuck writer doesn't also block
// inbox/search reads.
type Subsystem string

const (
	SubsystemWrite   Subsystem = "store.write"
	SubsystemRead    Subsystem = "store.read"
	SubsystemArchive Subsystem = "archive.write"
)

type breakerSet struct {
	breakers map[Subsystem]*gobreaker.CircuitBreaker
}

func newBreakerSet() *breakerSet {
	bs := &breakerSet{breakers: make(map[Subsystem]*gobreaker.CircuitBreaker)}
	for _, name := range []Subsystem{SubsystemWrite, SubsystemRead, SubsystemArchive} {
		name := name
		bs.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(name),
			MaxRequests: 1,
			Interval:    0,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return bs
}

// Do runs fn through the named subsystem's circuit breaker, translating
// an open breaker into ErrCircuitOpen.
func (s *Store) Do(ctx context.Context, subsystem Subsystem, fn func(ctx context.Context) (any, error)) (any, error) {
	breaker := s.breakers.breakers[subsystem]
	result, err := breaker.Execute(func() (any, error) {
		return fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// BreakerStates reports each subsystem breaker's current state name
// ("closed", "open", "half-open") for the health_check tool.
func (s *Store) BreakerStates() map[Subsystem]string {
	out := make(map[Subsystem]string, len(s.breakers.breakers))
	for name, b := range s.breakers.breakers {
		out[name] = b.State().String()
	}
	return out
}

// Ping verifies the database connection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return mapSQLiteErr(s.db.PingContext(ctx))
}

// queryRowContext runs a single-row SELECT through the read subsystem's
// breaker: an open breaker short-circuits before the query ever reaches
// SQLite.
func (s *Store) queryRowContext(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	result, err := s.Do(ctx, SubsystemRead, func(ctx context.Context) (any, error) {
		return s.db.QueryRowContext(ctx, query, args...), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Row), nil
}

// queryContext runs a multi-row SELECT through the read subsystem's
// breaker.
func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	result, err := s.Do(ctx, SubsystemRead, func(ctx context.Context) (any, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return result.(*sql.Rows), nil
}

// withWrite acquires the single write handle's breaker around fn.
func (s *Store) withWrite(ctx context.Context, fn func(tx *sql.Tx) error) error {
	_, err := s.Do(ctx, SubsystemWrite, func(ctx context.Context) (any, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, mapSQLiteErr(err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return nil, mapSQLiteErr(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, mapSQLiteErr(err)
		}
		return nil, nil
	})
	return err
}
