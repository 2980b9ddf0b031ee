package store

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guid       TEXT NOT NULL UNIQUE,
	slug       TEXT NOT NULL UNIQUE,
	human_key  TEXT NOT NULL UNIQUE,
	created_ts INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	guid               TEXT NOT NULL UNIQUE,
	project_id         INTEGER NOT NULL REFERENCES projects(id),
	name               TEXT NOT NULL,
	program            TEXT NOT NULL DEFAULT '',
	model              TEXT NOT NULL DEFAULT '',
	task_description   TEXT NOT NULL DEFAULT '',
	contact_policy     TEXT NOT NULL DEFAULT 'auto',
	attachments_policy TEXT NOT NULL DEFAULT 'auto',
	inception_ts       INTEGER NOT NULL,
	last_active_ts     INTEGER NOT NULL,
	UNIQUE(project_id, name)
);
CREATE INDEX IF NOT EXISTS idx_agents_project_name ON agents(project_id, name);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	guid         TEXT NOT NULL UNIQUE,
	project_id   INTEGER NOT NULL REFERENCES projects(id),
	sender_id    INTEGER NOT NULL REFERENCES agents(id),
	subject      TEXT NOT NULL DEFAULT '',
	body_md      TEXT NOT NULL DEFAULT '',
	importance   TEXT NOT NULL DEFAULT 'normal',
	ack_required INTEGER NOT NULL DEFAULT 0,
	thread_id    TEXT,
	attachments  TEXT NOT NULL DEFAULT '[]',
	created_ts   INTEGER NOT NULL,
	archived_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_messages_project_created ON messages(project_id, created_ts, id);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(project_id, thread_id);

CREATE TABLE IF NOT EXISTS message_recipients (
	message_id INTEGER NOT NULL REFERENCES messages(id),
	agent_id   INTEGER NOT NULL REFERENCES agents(id),
	kind       TEXT NOT NULL,
	read_ts    INTEGER,
	ack_ts     INTEGER,
	PRIMARY KEY (message_id, agent_id)
);
CREATE INDEX IF NOT EXISTS idx_recipients_agent ON message_recipients(agent_id, message_id);

CREATE TABLE IF NOT EXISTS agent_links (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id  INTEGER NOT NULL REFERENCES projects(id),
	a_agent_id  INTEGER NOT NULL REFERENCES agents(id),
	b_agent_id  INTEGER NOT NULL REFERENCES agents(id),
	status      TEXT NOT NULL,
	updated_ts  INTEGER NOT NULL,
	UNIQUE(project_id, a_agent_id, b_agent_id)
);

CREATE TABLE IF NOT EXISTS file_reservations (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id   INTEGER NOT NULL REFERENCES projects(id),
	agent_id     INTEGER NOT NULL REFERENCES agents(id),
	path_pattern TEXT NOT NULL,
	exclusive    INTEGER NOT NULL DEFAULT 1,
	created_ts   INTEGER NOT NULL,
	expires_ts   INTEGER NOT NULL,
	released_ts  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_reservations_active ON file_reservations(project_id, released_ts, expires_ts);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	subject, body_md,
	content='messages', content_rowid='id',
	tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, subject, body_md) VALUES (new.id, new.subject, new.body_md);
END;
CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, subject, body_md) VALUES ('delete', old.id, old.subject, old.body_md);
END;
CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, subject, body_md) VALUES ('delete', old.id, old.subject, old.body_md);
	INSERT INTO messages_fts(rowid, subject, body_md) VALUES (new.id, new.subject, new.body_md);
END;
`

// initSchema creates the schema if absent and applies any pending
// additive migrations. There is no version-tracked migration runner: each
// migration step probes the live schema (via tableHasColumn) and applies
// itself only if missing, so re-running initSchema on an up-to-date
// database is a no-op.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return migrateSchema(db)
}

// migrateSchema applies idempotent additive changes for schema evolutions
// beyond the initial CREATE TABLE set: each step probes the live schema
// via tableHasColumn and applies its ALTER TABLE only if missing, so a
// database created before the column existed catches up in place and one
// created fresh (already carrying it from schemaSQL) is left untouched.
// The open question on a future `topic` column (see SPEC_FULL.md §9) would land
// here the same way.
func migrateSchema(db *sql.DB) error {
	hasArchivedAt, err := tableHasColumn(db, "messages", "archived_at")
	if err != nil {
		return fmt.Errorf("probe messages.archived_at: %w", err)
	}
	if !hasArchivedAt {
		if _, err := db.Exec(`ALTER TABLE messages ADD COLUMN archived_at INTEGER`); err != nil {
			return fmt.Errorf("add messages.archived_at: %w", err)
		}
	}
	return nil
}

func tableHasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &primaryKey); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
