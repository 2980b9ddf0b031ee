package store

import (
	"context"
	"database/sql"

	"github.com/dicklesworth/agentmail/internal/ids"
	"github.com/dicklesworth/agentmail/internal/types"
)

// EnsureProject returns the project for humanKey/slug, creating it on
// first use. Projects are never deleted by the core.
func (s *Store) EnsureProject(ctx context.Context, slug, humanKey string, now int64) (types.Project, error) {
	if p, err := s.GetProjectBySlug(ctx, slug); err == nil {
		return p, nil
	} else if err != ErrNotFound {
		return types.Project{}, err
	}

	guid, err := ids.New(ids.PrefixProject)
	if err != nil {
		return types.Project{}, err
	}

	var project types.Project
	err = s.withWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`INSERT INTO projects (guid, slug, human_key, created_ts) VALUES (?, ?, ?, ?)`,
			guid, slug, humanKey, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		project = types.Project{ID: id, Slug: slug, HumanKey: humanKey, CreatedTS: now}
		return nil
	})
	if IsConstraintError(err) {
		// Lost a creation race; the project now exists under this slug.
		return s.GetProjectBySlug(ctx, slug)
	}
	if err != nil {
		return types.Project{}, err
	}
	return project, nil
}

// ListProjects returns every known project, newest first, for the
// resource://projects surface.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.queryContext(ctx, `SELECT id, slug, human_key, created_ts FROM projects ORDER BY created_ts DESC`)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		var p types.Project
		if err := rows.Scan(&p.ID, &p.Slug, &p.HumanKey, &p.CreatedTS); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProjectBySlug looks up a project by its canonical short key.
func (s *Store) GetProjectBySlug(ctx context.Context, slug string) (types.Project, error) {
	row, err := s.queryRowContext(ctx, `SELECT id, slug, human_key, created_ts FROM projects WHERE slug = ?`, slug)
	if err != nil {
		return types.Project{}, err
	}
	var p types.Project
	if err := row.Scan(&p.ID, &p.Slug, &p.HumanKey, &p.CreatedTS); err != nil {
		return types.Project{}, mapSQLiteErr(err)
	}
	return p, nil
}
