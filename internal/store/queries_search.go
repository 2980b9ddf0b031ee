package store

import (
	"context"
	"strings"
)

// FTSSearch runs a pre-sanitized FTS5 query (the caller, internal/search,
// is responsible for sanitization — the store never exposes raw FTS
// operators to anything outside that boundary) and returns matching
// message ids ordered by rank.
func (s *Store) FTSSearch(ctx context.Context, projectID int64, ftsQuery string, importance string, since int64, limit int) ([]int64, error) {
	query := `
		SELECT m.id FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ? AND m.project_id = ? AND m.created_ts >= ?`
	args := []any{ftsQuery, projectID, since}
	if importance != "" {
		query += ` AND m.importance = ?`
		args = append(args, importance)
	}
	query += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// LikeSearch is the fallback used when FTS returns zero rows:
// a parameterized LIKE scan over subject/body with manual escaping of
// SQLite LIKE metacharacters so the raw query text can never act as a
// wildcard the caller didn't intend.
func (s *Store) LikeSearch(ctx context.Context, projectID int64, rawQuery string, importance string, since int64, limit int) ([]int64, error) {
	escaped := escapeLike(rawQuery)
	pattern := "%" + escaped + "%"

	query := `SELECT id FROM messages WHERE project_id = ? AND created_ts >= ? AND (subject LIKE ? ESCAPE '\' OR body_md LIKE ? ESCAPE '\')`
	args := []any{projectID, since, pattern, pattern}
	if importance != "" {
		query += ` AND importance = ?`
		args = append(args, importance)
	}
	query += ` ORDER BY created_ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}

func scanIDs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
