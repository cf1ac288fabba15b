package sqlite

import (
	"database/sql"
	"fmt"
)

// Migration is one forward-only, idempotent schema step.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is the ordered list of migrations applied after the v1
// baseline schema. Each is additive only, per spec: deleted/dropped
// columns would break rollback compatibility with an already-running
// watcher process on an older binary.
var migrationsList = []Migration{
	{"soft_delete_columns", migrateSoftDeleteColumns},
	{"archive_columns", migrateArchiveColumns},
	{"settings_table", migrateSettingsTable},
}

// MigrationInfo describes a migration for `tk doctor migrations`.
type MigrationInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListMigrations returns all registered migrations; all are idempotent so
// this is safe to report regardless of which have actually run yet.
func ListMigrations() []MigrationInfo {
	result := make([]MigrationInfo, len(migrationsList))
	for i, m := range migrationsList {
		result[i] = MigrationInfo{Name: m.Name, Description: migrationDescription(m.Name)}
	}
	return result
}

func migrationDescription(name string) string {
	switch name {
	case "soft_delete_columns":
		return "Adds files.is_deleted and files.deleted_at for soft-delete tracking"
	case "archive_columns":
		return "Adds files.is_archived and files.archived_at overlay columns"
	case "settings_table":
		return "Adds the settings table; the legacy rename JSON file is not read by this migration"
	default:
		return "unknown migration"
	}
}

// RunMigrations applies every registered migration inside one exclusive
// transaction, so concurrent process starts against the same database
// file serialize rather than racing on check-then-alter DDL.
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("acquire exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, m := range migrationsList {
		if err := m.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	committed = true
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func migrateSoftDeleteColumns(db *sql.DB) error {
	ok, err := hasColumn(db, "files", "is_deleted")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE files ADD COLUMN is_deleted INTEGER NOT NULL DEFAULT 0`); err != nil {
		return err
	}
	if _, err := db.Exec(`ALTER TABLE files ADD COLUMN deleted_at DATETIME`); err != nil {
		return err
	}
	return nil
}

func migrateArchiveColumns(db *sql.DB) error {
	ok, err := hasColumn(db, "files", "is_archived")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE files ADD COLUMN is_archived INTEGER NOT NULL DEFAULT 0`); err != nil {
		return err
	}
	if _, err := db.Exec(`ALTER TABLE files ADD COLUMN archived_at DATETIME`); err != nil {
		return err
	}
	return nil
}

func migrateSettingsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`)
	return err
}
