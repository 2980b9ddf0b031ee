package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/dicklesworth/agentmail/internal/types"
)

// GetLink returns the directed a->b contact edge, if any.
func (s *Store) GetLink(ctx context.Context, projectID, aAgentID, bAgentID int64) (types.AgentLink, error) {
	row, err := s.queryRowContext(ctx, `
		SELECT id, project_id, a_agent_id, b_agent_id, status, updated_ts
		FROM agent_links WHERE project_id = ? AND a_agent_id = ? AND b_agent_id = ?`,
		projectID, aAgentID, bAgentID)
	if err != nil {
		return types.AgentLink{}, err
	}
	var l types.AgentLink
	var status string
	if err := row.Scan(&l.ID, &l.ProjectID, &l.AAgentID, &l.BAgentID, &status, &l.UpdatedTS); err != nil {
		return types.AgentLink{}, mapSQLiteErr(err)
	}
	l.Status = types.LinkStatus(status)
	return l, nil
}

// HasApprovedLink reports whether an approved AgentLink exists in either
// direction between the two agents — the `approved` signal.
func (s *Store) HasApprovedLink(ctx context.Context, projectID, agentA, agentB int64) (bool, error) {
	row, err := s.queryRowContext(ctx, `
		SELECT COUNT(*) FROM agent_links
		WHERE project_id = ? AND status = 'approved'
		  AND ((a_agent_id = ? AND b_agent_id = ?) OR (a_agent_id = ? AND b_agent_id = ?))`,
		projectID, agentA, agentB, agentB, agentA)
	if err != nil {
		return false, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return false, mapSQLiteErr(err)
	}
	return count > 0, nil
}

// UpsertLink creates or transitions a directed contact edge.
func (s *Store) UpsertLink(ctx context.Context, projectID, aAgentID, bAgentID int64, status types.LinkStatus, now int64) (types.AgentLink, error) {
	var link types.AgentLink
	err := s.withWrite(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			INSERT INTO agent_links (project_id, a_agent_id, b_agent_id, status, updated_ts)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_id, a_agent_id, b_agent_id) DO UPDATE SET status = excluded.status, updated_ts = excluded.updated_ts`,
			projectID, aAgentID, bAgentID, string(status), now)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		link = types.AgentLink{ID: id, ProjectID: projectID, AAgentID: aAgentID, BAgentID: bAgentID, Status: status, UpdatedTS: now}
		return nil
	})
	if err != nil {
		return types.AgentLink{}, err
	}
	return link, nil
}

// ListContacts returns every link touching agentID, either direction.
func (s *Store) ListContacts(ctx context.Context, projectID, agentID int64) ([]types.AgentLink, error) {
	rows, err := s.queryContext(ctx, `
		SELECT id, project_id, a_agent_id, b_agent_id, status, updated_ts
		FROM agent_links WHERE project_id = ? AND (a_agent_id = ? OR b_agent_id = ?)
		ORDER BY updated_ts DESC`, projectID, agentID, agentID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var links []types.AgentLink
	for rows.Next() {
		var l types.AgentLink
		var status string
		if err := rows.Scan(&l.ID, &l.ProjectID, &l.AAgentID, &l.BAgentID, &status, &l.UpdatedTS); err != nil {
			return nil, err
		}
		l.Status = types.LinkStatus(status)
		links = append(links, l)
	}
	return links, rows.Err()
}

// RecentContactOK reports whether sender and recipient have exchanged a
// message within ttl — the second recent_ok signal.
func (s *Store) RecentContactOK(ctx context.Context, projectID, senderID, recipientID int64, ttl time.Duration, nowMicros int64) (bool, error) {
	cutoff := nowMicros - ttl.Microseconds()
	row, err := s.queryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN message_recipients r ON r.message_id = m.id
		WHERE m.project_id = ? AND m.created_ts >= ?
		  AND ((m.sender_id = ? AND r.agent_id = ?) OR (m.sender_id = ? AND r.agent_id = ?))`,
		projectID, cutoff, senderID, recipientID, recipientID, senderID)
	if err != nil {
		return false, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return false, mapSQLiteErr(err)
	}
	return count > 0, nil
}
