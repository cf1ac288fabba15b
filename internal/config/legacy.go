package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// legacyTitlesFileName is the pre-migration name custom session titles
// were once stored under, directly in the config directory rather than
// inside the SQLite session_titles table.
const legacyTitlesFileName = "titles.json"

// migrateLegacyRenames moves any file left over from an earlier storage
// layout out of the way of the current one. It renames rather than
// deletes or overwrites, and is idempotent: once the legacy file has
// been renamed aside, later calls find nothing left to do.
func migrateLegacyRenames() error {
	dir, err := ConfigDir()
	if err != nil {
		return nil // nolint:nilerr // no config dir yet means nothing to migrate
	}

	legacyPath := filepath.Join(dir, legacyTitlesFileName)
	if _, err := os.Stat(legacyPath); err != nil {
		return nil // nothing to migrate
	}

	migratedPath := legacyPath + ".migrated"
	if _, err := os.Stat(migratedPath); err == nil {
		return nil // already migrated in a previous run
	}

	if err := os.Rename(legacyPath, migratedPath); err != nil {
		return fmt.Errorf("rename legacy titles file %s: %w", legacyPath, err)
	}
	return nil
}
