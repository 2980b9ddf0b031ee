package store

import (
	"context"
	"database/sql"

	"github.com/dicklesworth/agentmail/internal/types"
)

const reservationColumns = `id, project_id, agent_id, path_pattern, exclusive, created_ts, expires_ts, released_ts`

// CreateReservation inserts one reservation row, with exclusive/TTL
// semantics instead of a hard (claim_type, pattern) uniqueness
// constraint: multiple agents may hold overlapping *shared*
// (non-exclusive) reservations, so there is no unique index here;
// conflicts are decided by the pairwise overlap scan in
// internal/reservation, not by the store.
func (s *Store) CreateReservation(ctx context.Context, projectID, agentID int64, pathPattern string, exclusive bool, createdTS, expiresTS int64) (types.FileReservation, error) {
	var r types.FileReservation
	err := s.withWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO file_reservations (project_id, agent_id, path_pattern, exclusive, created_ts, expires_ts)
			VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, agentID, pathPattern, boolToInt(exclusive), createdTS, expiresTS)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		r = types.FileReservation{
			ID: id, ProjectID: projectID, AgentID: agentID, PathPattern: pathPattern,
			Exclusive: exclusive, CreatedTS: createdTS, ExpiresTS: expiresTS,
		}
		return nil
	})
	if err != nil {
		return types.FileReservation{}, err
	}
	return r, nil
}

// ActiveReservations returns every reservation with released_ts IS NULL
// AND expires_ts > now, optionally scoped to one agent.
func (s *Store) ActiveReservations(ctx context.Context, projectID int64, agentID *int64, now int64) ([]types.FileReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM file_reservations WHERE project_id = ? AND released_ts IS NULL AND expires_ts > ?`
	args := []any{projectID, now}
	if agentID != nil {
		query += ` AND agent_id = ?`
		args = append(args, *agentID)
	}
	query += ` ORDER BY created_ts`

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.FileReservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RenewReservations extends expires_ts for every active reservation
// matching the given ids by extendMicros.
func (s *Store) RenewReservations(ctx context.Context, ids []int64, extendMicros, now int64) (int64, error) {
	var total int64
	err := s.withWrite(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			res, err := tx.Exec(`UPDATE file_reservations SET expires_ts = expires_ts + ? WHERE id = ? AND released_ts IS NULL AND expires_ts > ?`,
				extendMicros, id, now)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

// ReleaseReservations sets released_ts = now for the given ids, scoped to
// agentID unless force is true (the force_release_file_reservation path).
func (s *Store) ReleaseReservations(ctx context.Context, ids []int64, agentID int64, force bool, now int64) (int64, error) {
	var total int64
	err := s.withWrite(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			var res sql.Result
			var err error
			if force {
				res, err = tx.Exec(`UPDATE file_reservations SET released_ts = ? WHERE id = ? AND released_ts IS NULL`, now, id)
			} else {
				res, err = tx.Exec(`UPDATE file_reservations SET released_ts = ? WHERE id = ? AND agent_id = ? AND released_ts IS NULL`, now, id, agentID)
			}
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

// ReservationsByPaths finds active reservations for an agent matching the
// given literal path_pattern strings (used by release/renew to resolve
// path args back to row ids).
func (s *Store) ReservationsByPaths(ctx context.Context, projectID, agentID int64, patterns []string, now int64) ([]types.FileReservation, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	query := `SELECT ` + reservationColumns + ` FROM file_reservations WHERE project_id = ? AND agent_id = ? AND released_ts IS NULL AND expires_ts > ? AND path_pattern IN (`
	args := []any{projectID, agentID, now}
	for i, p := range patterns {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, p)
	}
	query += ")"

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.FileReservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(row scannable) (types.FileReservation, error) {
	var r types.FileReservation
	var exclusive int
	var released sql.NullInt64
	err := row.Scan(&r.ID, &r.ProjectID, &r.AgentID, &r.PathPattern, &exclusive, &r.CreatedTS, &r.ExpiresTS, &released)
	if err != nil {
		return types.FileReservation{}, mapSQLiteErr(err)
	}
	r.Exclusive = exclusive != 0
	if released.Valid {
		v := released.Int64
		r.ReleasedTS = &v
	}
	return r, nil
}
