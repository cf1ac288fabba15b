// Package sqlite is the embedded Index Store: schema, migrations, the FTS
// shadow, and transactional CRUD over file rows, message rows, and the
// overlay tables.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by lookups for an unknown session or file.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would violate a uniqueness
// invariant the caller should have checked for first (e.g. moving a
// session onto an already-indexed path).
var ErrConflict = errors.New("conflict")

// Store is the Index Store. It is single-writer, many-reader: every
// mutating method runs inside its own transaction; reads proceed without
// blocking on a concurrent writer longer than one short transaction.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if necessary) the database at path, applies the
// baseline schema and all registered migrations, and returns a ready
// Store. Journal mode is WAL with NORMAL synchronous, matching the
// "journalled mode, normal sync, memory temp store, foreign keys on"
// layout the core's on-disk contract calls for.
func New(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=temp_store(MEMORY)&_pragma=foreign_keys(ON)",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect index database %s: %w", path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply baseline schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Stats reports session count, message count, and on-disk size.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE is_deleted = 0`).Scan(&st.SessionCount); err != nil {
		return st, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.MessageCount); err != nil {
		return st, fmt.Errorf("count messages: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		st.DatabaseBytes = info.Size()
	}
	return st, nil
}

func scanFileRow(row interface {
	Scan(dest ...any) error
}) (FileRow, error) {
	var fr FileRow
	var deletedAt, archivedAt sql.NullTime
	var title sql.NullString
	err := row.Scan(
		&fr.ID, &fr.FilePath, &fr.SessionID, &fr.EncodedDir, &fr.MtimeMS, &fr.SizeBytes,
		&fr.CreatedAt, &fr.LastAccessedAt, &fr.TotalMessages, &fr.UserMessages, &fr.AssistantMessages,
		&fr.InputTokens, &fr.OutputTokens, &fr.Model, &fr.GitBranch, &fr.AutoSlug, &fr.FirstUserMessage,
		&fr.IsDeleted, &deletedAt, &fr.IsArchived, &archivedAt, &title,
	)
	if err != nil {
		return fr, err
	}
	if deletedAt.Valid {
		fr.DeletedAt = deletedAt.Time
	}
	if archivedAt.Valid {
		fr.ArchivedAt = archivedAt.Time
	}
	if title.Valid {
		fr.Title = title.String
		fr.HasTitle = true
	}
	return fr, nil
}

const fileRowColumns = `
	f.id, f.file_path, f.session_id, f.encoded_dir, f.mtime_ms, f.size_bytes,
	f.created_at, f.last_accessed_at, f.total_messages, f.user_messages, f.assistant_messages,
	f.input_tokens, f.output_tokens, f.model, f.git_branch, f.auto_slug, f.first_user_message,
	f.is_deleted, f.deleted_at, f.is_archived, f.archived_at, t.title
`

// GetFileBySessionID looks up the file row for a session id, whether or
// not it is marked deleted.
func (s *Store) GetFileBySessionID(ctx context.Context, sessionID string) (FileRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fileRowColumns+`
		FROM files f LEFT JOIN session_titles t ON t.session_id = f.session_id
		WHERE f.session_id = ?`, sessionID)
	fr, err := scanFileRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRow{}, ErrNotFound
	}
	if err != nil {
		return FileRow{}, fmt.Errorf("get file by session %s: %w", sessionID, err)
	}
	return fr, nil
}

// UpsertFile inserts a new file row (wiping and rewriting its message
// rows), restoring overlays from preserved if given. It is always called
// after any prior row for the same path has been removed, per the
// delete-then-reindex ordering the Sync Engine and move() depend on.
func (s *Store) UpsertFile(ctx context.Context, info FileInfo, now time.Time, createdAt, lastAccessedAt time.Time,
	totals struct {
		Total, User, Assistant, InputTokens, OutputTokens int
		Model, GitBranch, AutoSlug, FirstUserMessage      string
	},
	messages []MessageInput, preserved *Overlays) (int64, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO files (
			file_path, session_id, encoded_dir, mtime_ms, size_bytes,
			created_at, last_accessed_at, total_messages, user_messages, assistant_messages,
			input_tokens, output_tokens, model, git_branch, auto_slug, first_user_message,
			is_archived, archived_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		info.Path, info.SessionID, info.EncodedDir, info.MtimeMS, info.SizeBytes,
		createdAt, lastAccessedAt, totals.Total, totals.User, totals.Assistant,
		totals.InputTokens, totals.OutputTokens, totals.Model, totals.GitBranch, totals.AutoSlug, totals.FirstUserMessage,
		preservedArchived(preserved), preservedArchivedAt(preserved),
	)
	if err != nil {
		return 0, fmt.Errorf("insert file row for %s: %w", info.Path, err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted file id for %s: %w", info.Path, err)
	}

	for _, m := range messages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (file_id, record_id, line_number, timestamp, role, content)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rowID, m.RecordID, m.LineNumber, m.Timestamp, m.Role, m.Content); err != nil {
			return 0, fmt.Errorf("insert message %s for file %s: %w", m.RecordID, info.Path, err)
		}
	}

	if preserved != nil && preserved.HasTitle {
		if err := setTitleTx(ctx, tx, info.SessionID, preserved.Title, now); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert for %s: %w", info.Path, err)
	}
	return rowID, nil
}

func preservedArchived(o *Overlays) bool {
	return o != nil && o.IsArchived
}

func preservedArchivedAt(o *Overlays) sql.NullTime {
	if o != nil && o.IsArchived {
		return sql.NullTime{Time: o.ArchivedAt, Valid: true}
	}
	return sql.NullTime{}
}

// MarkDeleted flips is_deleted on a file row without touching messages or
// overlays; the row is kept so a reappearance can restore it.
func (s *Store) MarkDeleted(ctx context.Context, rowID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE files SET is_deleted = 1, deleted_at = ? WHERE id = ?`, at, rowID)
	if err != nil {
		return fmt.Errorf("mark file %d deleted: %w", rowID, err)
	}
	return nil
}

// MarkRestored clears is_deleted, used when a previously-deleted path
// reappears on disk with the same content.
func (s *Store) MarkRestored(ctx context.Context, rowID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE files SET is_deleted = 0, deleted_at = NULL WHERE id = ?`, rowID)
	if err != nil {
		return fmt.Errorf("mark file %d restored: %w", rowID, err)
	}
	return nil
}

// SetArchived sets or clears the archive overlay for a session id.
func (s *Store) SetArchived(ctx context.Context, sessionID string, archived bool, at time.Time) error {
	var res sql.Result
	var err error
	if archived {
		res, err = s.db.ExecContext(ctx, `UPDATE files SET is_archived = 1, archived_at = ? WHERE session_id = ?`, at, sessionID)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE files SET is_archived = 0, archived_at = NULL WHERE session_id = ?`, sessionID)
	}
	if err != nil {
		return fmt.Errorf("set archived for session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archived update for session %s: %w", sessionID, err)
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// IsArchived reports the archive overlay for a session id.
func (s *Store) IsArchived(ctx context.Context, sessionID string) (bool, error) {
	var archived bool
	err := s.db.QueryRowContext(ctx, `SELECT is_archived FROM files WHERE session_id = ?`, sessionID).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check archived for session %s: %w", sessionID, err)
	}
	return archived, nil
}

// SetTitle sets the custom title overlay for a session id.
func (s *Store) SetTitle(ctx context.Context, sessionID, text string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set title: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := setTitleTx(ctx, tx, sessionID, text, at); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set title for session %s: %w", sessionID, err)
	}
	return nil
}

func setTitleTx(ctx context.Context, tx *sql.Tx, sessionID, text string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_titles (session_id, title, renamed_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET title = excluded.title, renamed_at = excluded.renamed_at
	`, sessionID, text, at)
	if err != nil {
		return fmt.Errorf("set title for session %s: %w", sessionID, err)
	}
	return nil
}

// GetTitle returns the custom title overlay, if any.
func (s *Store) GetTitle(ctx context.Context, sessionID string) (string, bool, error) {
	var title string
	err := s.db.QueryRowContext(ctx, `SELECT title FROM session_titles WHERE session_id = ?`, sessionID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get title for session %s: %w", sessionID, err)
	}
	return title, true, nil
}

// DeleteSessionByKey hard-removes the file row (cascading messages and
// the FTS shadow) and returns the overlay snapshot so the caller can
// immediately re-insert the same session id at a new path. This is the
// first half of an atomic move.
func (s *Store) DeleteSessionByKey(ctx context.Context, sessionID string) (*Overlays, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete session %s: %w", sessionID, err)
	}
	defer func() { _ = tx.Rollback() }()

	var overlays Overlays
	var archivedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `SELECT is_archived, archived_at FROM files WHERE session_id = ?`, sessionID).
		Scan(&overlays.IsArchived, &archivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read overlays for session %s: %w", sessionID, err)
	}
	if archivedAt.Valid {
		overlays.ArchivedAt = archivedAt.Time
	}

	var title string
	err = tx.QueryRowContext(ctx, `SELECT title FROM session_titles WHERE session_id = ?`, sessionID).Scan(&title)
	if err == nil {
		overlays.Title = title
		overlays.HasTitle = true
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get title for session %s: %w", sessionID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE session_id = ?`, sessionID); err != nil {
		return nil, fmt.Errorf("delete file row for session %s: %w", sessionID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete session %s: %w", sessionID, err)
	}
	return &overlays, nil
}
