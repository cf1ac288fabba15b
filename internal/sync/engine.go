// Package sync reconciles the on-disk transcript tree against the Index
// Store in one atomic-logical pass per cycle.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	"github.com/corvid/transcriptkeeper/internal/transcript"
)

// Tally is the result of one sync cycle.
type Tally struct {
	Added     int
	Updated   int
	Deleted   int
	Unchanged int
	Duration  time.Duration
}

// Engine reconciles a transcript root directory against a Store.
type Engine struct {
	Store *sqlite.Store
	Root  string
}

func New(store *sqlite.Store, root string) *Engine {
	return &Engine{Store: store, Root: root}
}

type diskFile struct {
	path       string
	sessionID  string
	encodedDir string
	mtimeMS    int64
	sizeBytes  int64
}

// Cycle runs one reconciliation pass: enumerate disk, diff against the
// index, apply changes, and report a tally. An error while indexing,
// re-indexing, restoring or marking one file ends the cycle: that error is
// returned with the tally counted so far, and the remaining files are not
// processed in that cycle.
func (e *Engine) Cycle(ctx context.Context) (Tally, error) {
	start := time.Now()
	var tally Tally

	onDisk, err := e.enumerate()
	if err != nil {
		return tally, fmt.Errorf("enumerate transcript root %s: %w", e.Root, err)
	}

	indexed, err := e.Store.ListSessions(ctx, sqlite.ListFilter{IncludeDeleted: true, IncludeArchived: true})
	if err != nil {
		return tally, fmt.Errorf("load indexed file rows: %w", err)
	}

	byPath := make(map[string]sqlite.FileRow, len(indexed))
	for _, row := range indexed {
		byPath[row.FilePath] = row
	}
	onDiskByPath := make(map[string]diskFile, len(onDisk))
	for _, f := range onDisk {
		onDiskByPath[f.path] = f
	}

	now := time.Now().UTC()

	for path, row := range byPath {
		if _, present := onDiskByPath[path]; !present {
			if !row.IsDeleted {
				if err := e.Store.MarkDeleted(ctx, row.ID, now); err != nil {
					return tally, fmt.Errorf("mark deleted %s: %w", path, err)
				}
				tally.Deleted++
			}
		}
	}

	for path, f := range onDiskByPath {
		row, present := byPath[path]
		switch {
		case !present:
			if err := e.indexNewFile(ctx, f); err != nil {
				return tally, fmt.Errorf("index new file %s: %w", path, err)
			}
			tally.Added++
		case row.IsDeleted:
			if err := e.Store.MarkRestored(ctx, row.ID); err != nil {
				return tally, fmt.Errorf("restore %s: %w", path, err)
			}
			tally.Updated++
		case row.MtimeMS != f.mtimeMS || row.SizeBytes != f.sizeBytes:
			if err := e.reindexChangedFile(ctx, f, row); err != nil {
				return tally, fmt.Errorf("reindex changed file %s: %w", path, err)
			}
			tally.Updated++
		default:
			tally.Unchanged++
		}
	}

	tally.Duration = time.Since(start)
	return tally, nil
}

func (e *Engine) enumerate() ([]diskFile, error) {
	projectsDir := filepath.Join(e.Root, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []diskFile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dirPath := filepath.Join(projectsDir, entry.Name())
		dirEntries, err := os.ReadDir(dirPath)
		if err != nil {
			// transient I/O: treated as "no files in that directory"
			continue
		}
		for _, de := range dirEntries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".jsonl") {
				continue
			}
			fullPath := filepath.Join(dirPath, de.Name())
			info, err := de.Info()
			if err != nil {
				continue
			}
			sessionID := strings.TrimSuffix(de.Name(), ".jsonl")
			files = append(files, diskFile{
				path:       fullPath,
				sessionID:  sessionID,
				encodedDir: entry.Name(),
				mtimeMS:    info.ModTime().UnixMilli(),
				sizeBytes:  info.Size(),
			})
		}
	}
	return files, nil
}

func (e *Engine) indexNewFile(ctx context.Context, f diskFile) error {
	return e.reindex(ctx, f, nil)
}

func (e *Engine) reindexChangedFile(ctx context.Context, f diskFile, row sqlite.FileRow) error {
	overlays := &sqlite.Overlays{IsArchived: row.IsArchived, ArchivedAt: row.ArchivedAt, Title: row.Title, HasTitle: row.HasTitle}
	if _, err := e.Store.DeleteSessionByKey(ctx, f.sessionID); err != nil {
		return err
	}
	return e.reindex(ctx, f, overlays)
}

func (e *Engine) reindex(ctx context.Context, f diskFile, overlays *sqlite.Overlays) error {
	parsed, err := transcript.Parse(f.path)
	if err != nil {
		return err
	}
	md := transcript.Derive(parsed.Records)

	var messages []sqlite.MessageInput
	for _, rec := range parsed.Records {
		if rec.Type != transcript.TypeUser && rec.Type != transcript.TypeAssistant {
			continue
		}
		ts, _ := time.Parse(time.RFC3339Nano, rec.Timestamp)
		messages = append(messages, sqlite.MessageInput{
			RecordID:   recordKey(rec),
			LineNumber: rec.LineNumber,
			Timestamp:  ts,
			Role:       string(rec.Type),
			Content:    transcript.ContentOf(rec),
		})
	}

	now := time.Now().UTC()
	_, err = e.Store.UpsertFile(ctx, sqlite.FileInfo{
		Path:       f.path,
		SessionID:  f.sessionID,
		EncodedDir: f.encodedDir,
		MtimeMS:    f.mtimeMS,
		SizeBytes:  f.sizeBytes,
	}, now, md.CreatedAt, md.LastAccessedAt, toTotals(md), messages, overlays)
	return err
}

func toTotals(md transcript.Metadata) struct {
	Total, User, Assistant, InputTokens, OutputTokens int
	Model, GitBranch, AutoSlug, FirstUserMessage      string
} {
	return struct {
		Total, User, Assistant, InputTokens, OutputTokens int
		Model, GitBranch, AutoSlug, FirstUserMessage      string
	}{
		Total: md.TotalMessages, User: md.UserMessages, Assistant: md.AssistantMessages,
		InputTokens: md.InputTokens, OutputTokens: md.OutputTokens,
		Model: md.Model, GitBranch: md.GitBranch, AutoSlug: md.AutoSlug, FirstUserMessage: md.FirstUserMessage,
	}
}

func recordKey(rec transcript.Record) string {
	if rec.ID != "" {
		return rec.ID
	}
	return fmt.Sprintf("line-%d", rec.LineNumber)
}
