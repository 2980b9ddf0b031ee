package store

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
)

// SQLite result codes, named the way a prior isConstraintError
// names sqliteConstraint/sqliteConstraintUnique rather than importing the
// driver's internal constants package.
const (
	sqliteBusy              = 5
	sqliteLocked            = 6
	sqliteConstraint        = 19
	sqliteConstraintUnique  = 2067
	sqliteConstraintPrimary = 1555
	sqliteFull              = 13
)

// Sentinel errors matching the store failure taxonomy. Transient lock
// contention is TemporarilyLocked (recoverable); a uniqueness violation
// is Conflict; a missing row is NotFound; a breaker in the open state is
// ErrCircuitOpen; the caller maps these to the wire error types.
var (
	ErrTemporarilyLocked = errors.New("temporarily locked")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrCircuitOpen       = errors.New("circuit open")
	ErrDiskFull          = errors.New("disk full")
)

// mapSQLiteErr translates a raw *sqlite.Error (or sql.ErrNoRows) into one
// of the taxonomy sentinels above. Errors that don't match a known code
// pass through unchanged — they become a generic "internal error" at the
// shell boundary.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqliteBusy, sqliteLocked:
			return ErrTemporarilyLocked
		case sqliteConstraint, sqliteConstraintUnique, sqliteConstraintPrimary:
			return ErrConflict
		case sqliteFull:
			return ErrDiskFull
		}
	}

	// modernc's driver sometimes surfaces the message rather than a typed
	// error for busy/locked conditions under heavy contention; fall back
	// to a substring match the way the prior helper
	// falls back to a code check rather than trusting error wrapping.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "busy"):
		return ErrTemporarilyLocked
	case strings.Contains(msg, "unique constraint"):
		return ErrConflict
	}

	return err
}

// IsConstraintError reports whether err (as returned by a Store method)
// represents a uniqueness violation — the signal the auto-registration
// race recovery path (contact/mail engines) re-reads as "someone else
// already inserted it".
func IsConstraintError(err error) bool {
	return errors.Is(err, ErrConflict)
}
