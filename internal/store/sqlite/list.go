package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// ListSessions returns file rows joined with titles, filtered per filter.
// Active rows come first (each group ordered by last-accessed descending),
// deleted rows last (ordered by deleted-at descending).
func (s *Store) ListSessions(ctx context.Context, filter ListFilter) ([]FileRow, error) {
	var where []string
	var args []any

	if !filter.IncludeDeleted {
		where = append(where, "f.is_deleted = 0")
	}
	if filter.ArchivedOnly {
		where = append(where, "f.is_archived = 1")
	} else if !filter.IncludeArchived {
		where = append(where, "f.is_archived = 0")
	}
	if filter.ExcludeEmpty {
		where = append(where, "f.total_messages > 0")
	}
	if filter.MinMessages > 0 {
		where = append(where, "f.total_messages >= ?")
		args = append(args, filter.MinMessages)
	}

	query := `SELECT ` + fileRowColumns + ` FROM files f LEFT JOIN session_titles t ON t.session_id = f.session_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY f.is_deleted ASC, f.deleted_at DESC, f.last_accessed_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FileRow
	for rows.Next() {
		fr, err := scanFileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, fr)
	}
	return out, rows.Err()
}
