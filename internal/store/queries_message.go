package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/dicklesworth/agentmail/internal/ids"
	"github.com/dicklesworth/agentmail/internal/types"
)

const messageColumns = `id, guid, project_id, sender_id, subject, body_md, importance, ack_required, thread_id, attachments, created_ts, archived_at`

// NewMessageInput carries everything needed for the atomic insert at the
// end of the send_message pipeline. Recipients is
// ordered to > cc > bcc with duplicates already resolved by the caller —
// the store layer enforces nothing about precedence, it just persists
// what the messaging engine decided.
type NewMessageInput struct {
	ProjectID   int64
	SenderID    int64
	Subject     string
	BodyMD      string
	Importance  types.Importance
	AckRequired bool
	ThreadID    string
	Attachments []types.Attachment
	Recipients  []types.MessageRecipient // AgentID + Kind populated; rest zero
	CreatedTS   int64
}

// CreateMessage inserts the message row and every recipient row inside a
// single transaction (one fsync): on any failure the whole transaction
// aborts and no partial fan-out is ever visible.
func (s *Store) CreateMessage(ctx context.Context, in NewMessageInput) (types.Message, error) {
	guid, err := ids.New(ids.PrefixMessage)
	if err != nil {
		return types.Message{}, err
	}
	attachmentsJSON, err := json.Marshal(in.Attachments)
	if err != nil {
		return types.Message{}, err
	}
	if in.Attachments == nil {
		attachmentsJSON = []byte("[]")
	}

	var msg types.Message
	err = s.withWrite(ctx, func(tx *sql.Tx) error {
		var threadID any
		if in.ThreadID != "" {
			threadID = in.ThreadID
		}
		res, err := tx.Exec(`
			INSERT INTO messages (guid, project_id, sender_id, subject, body_md, importance, ack_required, thread_id, attachments, created_ts)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			guid, in.ProjectID, in.SenderID, in.Subject, in.BodyMD, string(in.Importance), boolToInt(in.AckRequired), threadID, string(attachmentsJSON), in.CreatedTS)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, r := range in.Recipients {
			if _, err := tx.Exec(`INSERT INTO message_recipients (message_id, agent_id, kind) VALUES (?, ?, ?)`,
				id, r.AgentID, string(r.Kind)); err != nil {
				return err
			}
		}

		msg = types.Message{
			ID: id, GUID: guid, ProjectID: in.ProjectID, SenderID: in.SenderID,
			Subject: in.Subject, BodyMD: in.BodyMD, Importance: in.Importance,
			AckRequired: in.AckRequired, ThreadID: in.ThreadID, Attachments: in.Attachments,
			CreatedTS: in.CreatedTS,
		}
		return nil
	})
	if err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

// GetMessage fetches a message by surrogate id.
func (s *Store) GetMessage(ctx context.Context, id int64) (types.Message, error) {
	row, err := s.queryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if err != nil {
		return types.Message{}, err
	}
	return scanMessage(row)
}

// GetRecipients returns the recipient rows for a message.
func (s *Store) GetRecipients(ctx context.Context, messageID int64) ([]types.MessageRecipient, error) {
	rows, err := s.queryContext(ctx, `SELECT message_id, agent_id, kind, read_ts, ack_ts FROM message_recipients WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var recipients []types.MessageRecipient
	for rows.Next() {
		var r types.MessageRecipient
		var kind string
		var readTS, ackTS sql.NullInt64
		if err := rows.Scan(&r.MessageID, &r.AgentID, &kind, &readTS, &ackTS); err != nil {
			return nil, err
		}
		r.Kind = types.RecipientKind(kind)
		if readTS.Valid {
			v := readTS.Int64
			r.ReadTS = &v
		}
		if ackTS.Valid {
			v := ackTS.Int64
			r.AckTS = &v
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

// MarkRead is the idempotent recipient-scoped read mutation: the first call sets and returns read_ts; later
// calls return the original value unchanged.
func (s *Store) MarkRead(ctx context.Context, messageID, agentID, now int64) (int64, error) {
	var existing sql.NullInt64
	row, err := s.queryRowContext(ctx, `SELECT read_ts FROM message_recipients WHERE message_id = ? AND agent_id = ?`, messageID, agentID)
	if err != nil {
		return 0, err
	}
	if err := row.Scan(&existing); err != nil {
		return 0, mapSQLiteErr(err)
	}
	if existing.Valid {
		return existing.Int64, nil
	}
	_, err = s.db.ExecContext(ctx, `UPDATE message_recipients SET read_ts = ? WHERE message_id = ? AND agent_id = ? AND read_ts IS NULL`, now, messageID, agentID)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return now, nil
}

// Acknowledge is mark_message_read's sibling: idempotent, and also sets
// read_ts if it was unset.
func (s *Store) Acknowledge(ctx context.Context, messageID, agentID, now int64) (readTS, ackTS int64, err error) {
	readTS, err = s.MarkRead(ctx, messageID, agentID, now)
	if err != nil {
		return 0, 0, err
	}

	var existingAck sql.NullInt64
	row, err := s.queryRowContext(ctx, `SELECT ack_ts FROM message_recipients WHERE message_id = ? AND agent_id = ?`, messageID, agentID)
	if err != nil {
		return 0, 0, err
	}
	if err := row.Scan(&existingAck); err != nil {
		return 0, 0, mapSQLiteErr(err)
	}
	if existingAck.Valid {
		return readTS, existingAck.Int64, nil
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE message_recipients SET ack_ts = ? WHERE message_id = ? AND agent_id = ? AND ack_ts IS NULL`, now, messageID, agentID); err != nil {
		return 0, 0, mapSQLiteErr(err)
	}
	return readTS, now, nil
}

// InboxRow is a joined message+recipient row used by the inbox synthesis
// engine (internal/search), which owns the bucket computation itself; the
// store's job here is just the join and ordering-relevant fields.
type InboxRow struct {
	Message    types.Message
	FromName   string
	ReadTS     *int64
	AckTS      *int64
}

// FetchInboxRows returns every message addressed to agentID (to or cc —
// never bcc, matching notification semantics elsewhere in the system)
// ordered newest first, for the search engine to bucket. limit<=0 means
// unlimited (SQLite's LIMIT -1), since the caller must see the full
// candidate set before it can apply a priority-bucket-aware window —
// an earlier recency-only LIMIT here could cut an old, still-overdue
// message out of the result before it ever gets ranked.
func (s *Store) FetchInboxRows(ctx context.Context, projectID, agentID int64, limit int) ([]InboxRow, error) {
	sqlLimit := limit
	if sqlLimit <= 0 {
		sqlLimit = -1
	}
	rows, err := s.queryContext(ctx, `
		SELECT m.`+messageColumnsPrefixed("m")+`, sender.name, r.read_ts, r.ack_ts
		FROM message_recipients r
		JOIN messages m ON m.id = r.message_id
		JOIN agents sender ON sender.id = m.sender_id
		WHERE m.project_id = ? AND r.agent_id = ? AND r.kind IN ('to','cc')
		ORDER BY m.created_ts DESC, m.id DESC
		LIMIT ?`, projectID, agentID, sqlLimit)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []InboxRow
	for rows.Next() {
		var ir InboxRow
		var readTS, ackTS sql.NullInt64
		if err := scanMessageRowInto(rows, &ir.Message, &ir.FromName, &readTS, &ackTS); err != nil {
			return nil, err
		}
		if readTS.Valid {
			v := readTS.Int64
			ir.ReadTS = &v
		}
		if ackTS.Valid {
			v := ackTS.Int64
			ir.AckTS = &v
		}
		out = append(out, ir)
	}
	return out, rows.Err()
}

// ThreadParticipants returns the distinct agent ids who sent or received
// any of the last window messages in a thread — the first recent_ok
// signal used by the contact-policy engine.
func (s *Store) ThreadParticipants(ctx context.Context, projectID int64, threadID string, window int) (map[int64]bool, error) {
	rows, err := s.queryContext(ctx, `
		SELECT sender_id FROM messages WHERE project_id = ? AND thread_id = ? ORDER BY created_ts DESC LIMIT ?`,
		projectID, threadID, window)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	participants := make(map[int64]bool)
	var messageIDs []int64
	for rows.Next() {
		var senderID int64
		if err := rows.Scan(&senderID); err != nil {
			return nil, err
		}
		participants[senderID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_ = messageIDs
	recipRows, err := s.queryContext(ctx, `
		SELECT r.agent_id FROM message_recipients r
		WHERE r.message_id IN (
			SELECT id FROM messages WHERE project_id = ? AND thread_id = ?
			ORDER BY created_ts DESC LIMIT ?)`, projectID, threadID, window)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer recipRows.Close()
	for recipRows.Next() {
		var agentID int64
		if err := recipRows.Scan(&agentID); err != nil {
			return nil, err
		}
		participants[agentID] = true
	}
	return participants, recipRows.Err()
}

// MessagesByThread returns every message in a thread, oldest first, for
// summarize_thread and the resource://thread/{id} surface.
func (s *Store) MessagesByThread(ctx context.Context, projectID int64, threadID string, limit int) ([]types.Message, error) {
	rows, err := s.queryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE project_id = ? AND thread_id = ?
		ORDER BY created_ts ASC, id ASC
		LIMIT ?`, projectID, threadID, limit)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessagesSent returns every message an agent has sent, newest first, for
// the resource://outbox/{agent} surface.
func (s *Store) MessagesSent(ctx context.Context, projectID, agentID int64, limit int) ([]types.Message, error) {
	rows, err := s.queryContext(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE project_id = ? AND sender_id = ?
		ORDER BY created_ts DESC, id DESC
		LIMIT ?`, projectID, agentID, limit)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MessagesReceived returns every message addressed to an agent (any
// recipient kind), newest first, for the resource://mailbox/{agent}
// surface — unlike fetch_inbox this does not bucket by priority and
// includes bcc deliveries.
func (s *Store) MessagesReceived(ctx context.Context, projectID, agentID int64, limit int) ([]types.Message, error) {
	rows, err := s.queryContext(ctx, `
		SELECT `+messageColumnsPrefixed("m")+` FROM messages m
		JOIN message_recipients r ON r.message_id = m.id
		WHERE m.project_id = ? AND r.agent_id = ?
		ORDER BY m.created_ts DESC, m.id DESC
		LIMIT ?`, projectID, agentID, limit)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func messageColumnsPrefixed(alias string) string {
	return alias + ".id, " + alias + ".guid, " + alias + ".project_id, " + alias + ".sender_id, " +
		alias + ".subject, " + alias + ".body_md, " + alias + ".importance, " + alias + ".ack_required, " +
		alias + ".thread_id, " + alias + ".attachments, " + alias + ".created_ts, " + alias + ".archived_at"
}

func scanMessage(row scannable) (types.Message, error) {
	var m types.Message
	var threadID sql.NullString
	var ackReq int
	var attachmentsJSON string
	var archivedAt sql.NullInt64
	err := row.Scan(&m.ID, &m.GUID, &m.ProjectID, &m.SenderID, &m.Subject, &m.BodyMD,
		&m.Importance, &ackReq, &threadID, &attachmentsJSON, &m.CreatedTS, &archivedAt)
	if err != nil {
		return types.Message{}, mapSQLiteErr(err)
	}
	m.AckRequired = ackReq != 0
	if threadID.Valid {
		m.ThreadID = threadID.String
	}
	if archivedAt.Valid {
		v := archivedAt.Int64
		m.ArchivedAt = &v
	}
	if err := json.Unmarshal([]byte(attachmentsJSON), &m.Attachments); err != nil {
		return types.Message{}, err
	}
	return m, nil
}

func scanMessageRowInto(row scannable, m *types.Message, fromName *string, readTS, ackTS *sql.NullInt64) error {
	var threadID sql.NullString
	var ackReq int
	var attachmentsJSON string
	var archivedAt sql.NullInt64
	err := row.Scan(&m.ID, &m.GUID, &m.ProjectID, &m.SenderID, &m.Subject, &m.BodyMD,
		&m.Importance, &ackReq, &threadID, &attachmentsJSON, &m.CreatedTS, &archivedAt, fromName, readTS, ackTS)
	if err != nil {
		return mapSQLiteErr(err)
	}
	m.AckRequired = ackReq != 0
	if threadID.Valid {
		m.ThreadID = threadID.String
	}
	if archivedAt.Valid {
		v := archivedAt.Int64
		m.ArchivedAt = &v
	}
	return json.Unmarshal([]byte(attachmentsJSON), &m.Attachments)
}
