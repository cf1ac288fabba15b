package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/corvid/transcriptkeeper/internal/pathcodec"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
)

// Move relocates a session's transcript file to a new working directory.
// The delete-then-reindex ordering is load-bearing: because the old row
// is gone before the new one is written, a concurrent sync cannot produce
// a duplicate row for the session id, and a crash between steps leaves
// the session absent from the index entirely (recoverable by the next
// sync) rather than indexed twice.
func (e *Engine) Move(ctx context.Context, sessionID, newWorkingDir string) error {
	row, err := e.Store.GetFileBySessionID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("move session %s: %w", sessionID, err)
	}

	if _, err := os.Stat(row.FilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("move session %s: %w", sessionID, sqlite.ErrNotFound)
		}
		return fmt.Errorf("stat transcript for session %s: %w", sessionID, err)
	}

	encodedDir := pathcodec.Encode(newWorkingDir)
	destDir := filepath.Join(e.Root, "projects", encodedDir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create destination directory for session %s: %w", sessionID, err)
	}
	destPath := filepath.Join(destDir, sessionID+".jsonl")
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("move session %s to %s: %w", sessionID, newWorkingDir, sqlite.ErrConflict)
	}

	overlays, err := e.Store.DeleteSessionByKey(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("capture overlays before move of session %s: %w", sessionID, err)
	}

	if err := rewriteCwd(row.FilePath, newWorkingDir); err != nil {
		return fmt.Errorf("rewrite cwd for session %s: %w", sessionID, err)
	}
	if err := os.Rename(row.FilePath, destPath); err != nil {
		return fmt.Errorf("rename transcript for session %s: %w", sessionID, err)
	}

	if _, err := e.reindexMovedFile(ctx, destPath, sessionID, encodedDir, overlays); err != nil {
		return fmt.Errorf("reindex session %s at new path: %w", sessionID, err)
	}
	return nil
}

func (e *Engine) reindexMovedFile(ctx context.Context, path, sessionID, encodedDir string, overlays *sqlite.Overlays) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	f := diskFile{
		path:       path,
		sessionID:  sessionID,
		encodedDir: encodedDir,
		mtimeMS:    info.ModTime().UnixMilli(),
		sizeBytes:  info.Size(),
	}
	if err := e.reindex(ctx, f, overlays); err != nil {
		return 0, err
	}
	row, err := e.Store.GetFileBySessionID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

// rewriteCwd rewrites the "cwd" field of every record in a JSONL file to
// newCwd, in place. This is the single controlled rewrite of an
// otherwise-read-only transcript file the core is permitted to make.
func rewriteCwd(path, newCwd string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is resolved from the index, not user input
	if err != nil {
		return err
	}
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines[i] = rewriteCwdField(line, newCwd)
	}
	out := bytes.Join(lines, []byte("\n"))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// rewriteCwdField does a minimal string-level patch of the top-level
// "cwd" field. Rewriting as a full JSON round trip would reorder and
// possibly reformat fields the external assistant wrote; a targeted
// string replace keeps the rest of the line byte-identical.
func rewriteCwdField(line []byte, newCwd string) []byte {
	const marker = `"cwd":"`
	idx := bytes.Index(line, []byte(marker))
	if idx < 0 {
		return line
	}
	start := idx + len(marker)
	end := start
	for end < len(line) && line[end] != '"' {
		if line[end] == '\\' {
			end++
		}
		end++
	}
	if end >= len(line) {
		return line
	}
	escaped, err := jsonEscape(newCwd)
	if err != nil {
		return line
	}
	var out bytes.Buffer
	out.Write(line[:start])
	out.WriteString(escaped)
	out.Write(line[end:])
	return out.Bytes()
}

func jsonEscape(s string) (string, error) {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}
