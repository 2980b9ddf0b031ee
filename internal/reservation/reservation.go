// Package reservation implements the file-reservation engine: declaring
// exclusive or shared intent over glob-pattern path regions, renewing and
// releasing them, and detecting exclusive-exclusive conflicts via the
// pattern algebra's overlap relation.
package reservation

import (
	"context"
	"fmt"

	"github.com/dicklesworth/agentmail/internal/archive"
	"github.com/dicklesworth/agentmail/internal/pattern"
	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// Engine wraps the store with reservation-specific validation and the
// pairwise conflict scan.
type Engine struct {
	store   *store.Store
	archive *archive.Manager
}

// New builds a reservation engine. archiveManager may be nil (as in tests),
// in which case lock-signal mirroring is skipped.
func New(s *store.Store, archiveManager *archive.Manager) *Engine {
	return &Engine{store: s, archive: archiveManager}
}

// Reserve creates one reservation row per path pattern, each expiring at
// now+ttlMicros. Invalid glob syntax is rejected before any row is
// written — all-or-nothing per call. projectSlug is used only to mirror
// a lock-signal file per reservation via the archive manager (best
// effort; a nil archive manager, as in tests, simply skips it).
func (e *Engine) Reserve(ctx context.Context, projectID, agentID int64, projectSlug string, paths []string, exclusive bool, ttlMicros, now int64) ([]types.FileReservation, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no paths given", ErrInvalidArgument)
	}
	for _, p := range paths {
		if _, err := pattern.Compile(p); err != nil {
			return nil, fmt.Errorf("%w: invalid pattern %q: %v", ErrInvalidArgument, p, err)
		}
	}

	out := make([]types.FileReservation, 0, len(paths))
	for _, p := range paths {
		r, err := e.store.CreateReservation(ctx, projectID, agentID, p, exclusive, now, now+ttlMicros)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		e.mirrorSignal(projectSlug, r)
	}
	return out, nil
}

// Renew extends expires_ts by extendMicros for the agent's active
// reservations matching paths.
func (e *Engine) Renew(ctx context.Context, projectID, agentID int64, projectSlug string, paths []string, extendMicros, now int64) (int64, error) {
	rows, err := e.store.ReservationsByPaths(ctx, projectID, agentID, paths, now)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, store.ErrNotFound
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		r.ExpiresTS += extendMicros
		e.mirrorSignal(projectSlug, r)
	}
	return e.store.RenewReservations(ctx, ids, extendMicros, now)
}

// mirrorSignal writes (or refreshes) the reservation's lock-signal file
// through the archive manager. A nil manager (unit tests, or a process
// run without an archive root) is a silent no-op, matching the archive
// queue's own best-effort contract.
func (e *Engine) mirrorSignal(projectSlug string, r types.FileReservation) {
	if e.archive == nil || projectSlug == "" {
		return
	}
	e.archive.For(projectSlug).EnqueueReservationSignal(projectSlug, r)
}

// Release sets released_ts for the agent's active reservations matching
// paths. Scoped to agentID — an agent can only release its own holds.
func (e *Engine) Release(ctx context.Context, projectID, agentID int64, paths []string, now int64) (int64, error) {
	rows, err := e.store.ReservationsByPaths(ctx, projectID, agentID, paths, now)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, store.ErrNotFound
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return e.store.ReleaseReservations(ctx, ids, agentID, false, now)
}

// ForceRelease is the administrative override: releases reservation rows
// by id regardless of which agent holds them.
func (e *Engine) ForceRelease(ctx context.Context, ids []int64, now int64) (int64, error) {
	return e.store.ReleaseReservations(ctx, ids, 0, true, now)
}

// Active returns every currently-active reservation in a project,
// optionally scoped to one agent.
func (e *Engine) Active(ctx context.Context, projectID int64, agentID *int64, now int64) ([]types.FileReservation, error) {
	return e.store.ActiveReservations(ctx, projectID, agentID, now)
}

// ListConflicts performs the pairwise O(n^2) scan over active, exclusive
// reservations held by different agents: conflicts are
// reported as pairs (A, B) with A.AgentID < B.AgentID to avoid duplicate
// (B, A) / (A, B) reporting of the same pair.
func (e *Engine) ListConflicts(ctx context.Context, projectID int64, now int64) ([]types.ReservationConflict, error) {
	active, err := e.store.ActiveReservations(ctx, projectID, nil, now)
	if err != nil {
		return nil, err
	}

	var exclusive []types.FileReservation
	for _, r := range active {
		if r.Exclusive {
			exclusive = append(exclusive, r)
		}
	}

	compiled := make([]*pattern.Pattern, len(exclusive))
	for i, r := range exclusive {
		p, err := pattern.Compile(r.PathPattern)
		if err != nil {
			continue // defensively tolerate legacy bad data, never fail the whole scan
		}
		compiled[i] = p
	}

	var conflicts []types.ReservationConflict
	for i := 0; i < len(exclusive); i++ {
		for j := i + 1; j < len(exclusive); j++ {
			a, b := exclusive[i], exclusive[j]
			if a.AgentID == b.AgentID {
				continue
			}
			if compiled[i] == nil || compiled[j] == nil {
				continue
			}
			if !compiled[i].Overlaps(compiled[j]) {
				continue
			}
			if a.AgentID < b.AgentID {
				conflicts = append(conflicts, types.ReservationConflict{A: a, B: b})
			} else {
				conflicts = append(conflicts, types.ReservationConflict{A: b, B: a})
			}
		}
	}
	return conflicts, nil
}

// ErrInvalidArgument mirrors the wire taxonomy's INVALID_ARGUMENT type
// for reservation-engine input errors that never reach the
// store.
var ErrInvalidArgument = fmt.Errorf("invalid argument")
