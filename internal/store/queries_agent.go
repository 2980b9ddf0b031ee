package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dicklesworth/agentmail/internal/ids"
	"github.com/dicklesworth/agentmail/internal/types"
)

const agentColumns = `id, guid, project_id, name, program, model, task_description, contact_policy, attachments_policy, inception_ts, last_active_ts`

// GetAgentByName is a case-insensitive lookup within a project: recipient
// names are always resolved ignoring case.
func (s *Store) GetAgentByName(ctx context.Context, projectID int64, name string) (types.Agent, error) {
	row, err := s.queryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE project_id = ? AND LOWER(name) = LOWER(?)`, projectID, name)
	if err != nil {
		return types.Agent{}, err
	}
	return scanAgent(row)
}

// GetAgent looks up an agent by its surrogate id.
func (s *Store) GetAgent(ctx context.Context, agentID int64) (types.Agent, error) {
	row, err := s.queryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, agentID)
	if err != nil {
		return types.Agent{}, err
	}
	return scanAgent(row)
}

// RegisterAgent creates a new agent, or returns the existing one if a
// parallel call already created it under the same (project_id, name) —
// the auto-registration race recovery path: a unique-constraint failure
// on insert means another caller won the race, so we just look the row
// up instead of surfacing an error.
func (s *Store) RegisterAgent(ctx context.Context, projectID int64, name, program, model, taskDescription string, policy types.ContactPolicy, attachPolicy types.AttachmentsPolicy, now int64) (types.Agent, error) {
	guid, err := ids.New(ids.PrefixAgent)
	if err != nil {
		return types.Agent{}, err
	}
	if policy == "" {
		policy = types.PolicyAuto
	}
	if attachPolicy == "" {
		attachPolicy = types.AttachmentsAuto
	}

	var agent types.Agent
	err = s.withWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO agents (guid, project_id, name, program, model, task_description, contact_policy, attachments_policy, inception_ts, last_active_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			guid, projectID, name, program, model, taskDescription, policy, attachPolicy, now, now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		agent = types.Agent{
			ID: id, GUID: guid, ProjectID: projectID, Name: name,
			Program: program, Model: model, TaskDescription: taskDescription,
			ContactPolicy: policy, AttachmentsPolicy: attachPolicy,
			InceptionTS: now, LastActiveTS: now,
		}
		return nil
	})
	if IsConstraintError(err) {
		return s.GetAgentByName(ctx, projectID, name)
	}
	if err != nil {
		return types.Agent{}, err
	}
	return agent, nil
}

// ResolveOrRegisterAgent resolves name to an existing agent, or — when
// autoRegister is set — creates it using templateAgent's program/model as
// the seed.
func (s *Store) ResolveOrRegisterAgent(ctx context.Context, projectID int64, name string, autoRegister bool, templateAgent types.Agent, now int64) (types.Agent, bool, error) {
	existing, err := s.GetAgentByName(ctx, projectID, name)
	if err == nil {
		return existing, false, nil
	}
	if err != ErrNotFound {
		return types.Agent{}, false, err
	}
	if !autoRegister {
		return types.Agent{}, false, ErrNotFound
	}
	created, err := s.RegisterAgent(ctx, projectID, name, templateAgent.Program, templateAgent.Model, "", types.PolicyAuto, types.AttachmentsAuto, now)
	if err != nil {
		return types.Agent{}, false, err
	}
	return created, true, nil
}

// TouchLastActive bumps an agent's last_active_ts to now.
func (s *Store) TouchLastActive(ctx context.Context, agentID, now int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE agents SET last_active_ts = ? WHERE id = ?`, now, agentID)
	return mapSQLiteErr(err)
}

// SetContactPolicy updates an agent's contact policy.
func (s *Store) SetContactPolicy(ctx context.Context, agentID int64, policy types.ContactPolicy) error {
	_, err := s.db.ExecContext(ctx, `UPDATE agents SET contact_policy = ? WHERE id = ?`, policy, agentID)
	return mapSQLiteErr(err)
}

// ListAgents returns every agent registered in a project, ordered by name.
func (s *Store) ListAgents(ctx context.Context, projectID int64) ([]types.Agent, error) {
	rows, err := s.queryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE project_id = ? ORDER BY LOWER(name)`, projectID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var agents []types.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SuggestAgentNames returns registered agent names whose prefix
// case-insensitively matches query, for RECIPIENT_NOT_FOUND suggestions.
func (s *Store) SuggestAgentNames(ctx context.Context, projectID int64, query string, limit int) ([]string, error) {
	rows, err := s.queryContext(ctx, `SELECT name FROM agents WHERE project_id = ? AND LOWER(name) LIKE LOWER(?) ORDER BY name LIMIT ?`,
		projectID, strings.ToLower(query)+"%", limit)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAgent(row scannable) (types.Agent, error) {
	var a types.Agent
	err := row.Scan(&a.ID, &a.GUID, &a.ProjectID, &a.Name, &a.Program, &a.Model, &a.TaskDescription,
		&a.ContactPolicy, &a.AttachmentsPolicy, &a.InceptionTS, &a.LastActiveTS)
	if err != nil {
		return types.Agent{}, mapSQLiteErr(err)
	}
	return a, nil
}
