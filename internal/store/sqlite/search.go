package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const (
	defaultMaxSessions         = 20
	defaultMaxMatchesPerSession = 5
)

// NormalizeQuery turns a free-text search query into an FTS5 MATCH
// expression. A query that already contains an explicit operator is
// passed through unchanged; otherwise punctuation that confuses FTS5's
// query syntax is stripped, the remaining terms are split on whitespace,
// and a single term gets a trailing `*` for prefix matching while
// multiple terms are joined with an implicit AND.
func NormalizeQuery(query string) string {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ""
	}
	if hasExplicitOperator(trimmed) {
		return trimmed
	}

	cleaned := strings.NewReplacer("(", " ", ")", " ", ":", " ").Replace(trimmed)
	terms := strings.Fields(cleaned)
	if len(terms) == 0 {
		return ""
	}
	if len(terms) == 1 {
		return terms[0] + "*"
	}
	return strings.Join(terms, " AND ")
}

func hasExplicitOperator(q string) bool {
	if strings.Contains(q, `"`) || strings.Contains(q, "*") || strings.Contains(q, "-") {
		return true
	}
	return strings.Contains(q, " OR ") || strings.Contains(q, " AND ")
}

// Search runs a full-text query over message content, grouping matches by
// session. Results are ranked by BM25 ascending (best match first), each
// match carries a marker-delimited snippet, and results are capped per
// limits.
func (s *Store) Search(ctx context.Context, query string, limits SearchLimits) ([]SearchResult, error) {
	normalized := NormalizeQuery(query)
	if normalized == "" {
		return nil, nil
	}

	maxSessions := limits.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	maxPerSession := limits.MaxMatchesPerSession
	if maxPerSession <= 0 {
		maxPerSession = defaultMaxMatchesPerSession
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.session_id, f.file_path, COALESCE(t.title, ''),
		       m.record_id, m.timestamp,
		       snippet(messages_fts, 0, '‣', '‣', '...', 12) AS snip,
		       bm25(messages_fts) AS rank
		FROM messages_fts
		JOIN messages m ON m.id = messages_fts.rowid
		JOIN files f ON f.id = m.file_id
		LEFT JOIN session_titles t ON t.session_id = f.session_id
		WHERE messages_fts MATCH ? AND f.is_deleted = 0
		ORDER BY rank ASC
	`, normalized)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer func() { _ = rows.Close() }()

	order := []string{}
	bySession := map[string]*SearchResult{}

	for rows.Next() {
		var sessionID, filePath, title, recordID, snippet string
		var ts sql.NullTime
		var rank float64
		if err := rows.Scan(&sessionID, &filePath, &title, &recordID, &ts, &snippet, &rank); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		res, ok := bySession[sessionID]
		if !ok {
			if len(order) >= maxSessions {
				continue
			}
			res = &SearchResult{SessionID: sessionID, FilePath: filePath, Title: title}
			bySession[sessionID] = res
			order = append(order, sessionID)
		}
		if len(res.Matches) >= maxPerSession {
			continue
		}
		match := SearchMatch{RecordID: recordID, Snippet: snippet}
		if ts.Valid {
			match.Timestamp = ts.Time
		}
		res.Matches = append(res.Matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results for %q: %w", query, err)
	}

	out := make([]SearchResult, 0, len(order))
	for _, id := range order {
		out = append(out, *bySession[id])
	}
	return out, nil
}
