// Package search implements the FTS-first/LIKE-fallback message search,
// priority-bucketed inbox synthesis, and anomaly-card heuristics.
package search

import (
	"context"
	"regexp"
	"strings"

	"github.com/dicklesworth/agentmail/internal/store"
	"github.com/dicklesworth/agentmail/internal/types"
)

// Engine composes the store's raw FTS/LIKE queries with sanitization and
// response-envelope bookkeeping.
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

var ftsOperators = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NEAR": true,
}

var nonAlnumKeepDashUnderscore = regexp.MustCompile(`[^A-Za-z0-9_\-]+`)

// SanitizeFTSQuery reduces free text to an FTS5-safe form:
// whitespace-separated tokens, each trimmed of non-alphanumeric
// characters (preserving "-_"), each dropped if it is an FTS5 operator
// keyword, each remaining token wrapped in double quotes so no advanced
// FTS syntax ever reaches the engine from caller input.
func SanitizeFTSQuery(raw string) string {
	fields := strings.Fields(raw)
	var tokens []string
	for _, f := range fields {
		cleaned := nonAlnumKeepDashUnderscore.ReplaceAllString(f, "")
		if cleaned == "" {
			continue
		}
		if ftsOperators[strings.ToUpper(cleaned)] {
			continue
		}
		tokens = append(tokens, `"`+cleaned+`"`)
	}
	return strings.Join(tokens, " ")
}

// Search runs the sanitized query through FTS; if FTS returns zero rows
// it falls back to a LIKE scan, recording which method produced the
// result set.
func (e *Engine) Search(ctx context.Context, projectID int64, rawQuery string, importance types.Importance, since int64, limit int) (types.SearchResult, error) {
	sanitized := SanitizeFTSQuery(rawQuery)
	if sanitized == "" {
		return types.SearchResult{Method: types.SearchMethodFTS, Messages: nil}, nil
	}

	ids, err := e.store.FTSSearch(ctx, projectID, sanitized, string(importance), since, limit)
	if err != nil {
		return types.SearchResult{}, err
	}
	if len(ids) > 0 {
		msgs, err := e.fetchAll(ctx, ids)
		if err != nil {
			return types.SearchResult{}, err
		}
		return types.SearchResult{Method: types.SearchMethodFTS, Messages: msgs}, nil
	}

	likeIDs, err := e.store.LikeSearch(ctx, projectID, rawQuery, string(importance), since, limit)
	if err != nil {
		return types.SearchResult{}, err
	}
	msgs, err := e.fetchAll(ctx, likeIDs)
	if err != nil {
		return types.SearchResult{}, err
	}
	return types.SearchResult{Method: types.SearchMethodLikeFallback, Messages: msgs}, nil
}

func (e *Engine) fetchAll(ctx context.Context, ids []int64) ([]types.Message, error) {
	out := make([]types.Message, 0, len(ids))
	for _, id := range ids {
		m, err := e.store.GetMessage(ctx, id)
		if err != nil {
			continue // a message deleted/archived between index and fetch is skipped, not fatal
		}
		out = append(out, m)
	}
	return out, nil
}
