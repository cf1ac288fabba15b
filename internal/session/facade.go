// Package session is the typed read/search/mutate API layered over the
// Index Store; callers that don't want to see storage details use this
// instead of internal/store/sqlite directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corvid/transcriptkeeper/internal/pathcodec"
	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	"github.com/corvid/transcriptkeeper/internal/sync"
)

// ErrNotFound is returned when find/archive/rename/etc. target an unknown
// session id.
var ErrNotFound = sqlite.ErrNotFound

// Summary is a session's listing-ready view: file-row attributes plus a
// resolved title.
type Summary struct {
	SessionID        string
	FilePath         string
	WorkingDirectory string
	CreatedAt        time.Time
	LastAccessedAt   time.Time
	TotalMessages    int
	Model            string
	GitBranch        string
	IsArchived       bool
	IsDeleted        bool
	Title            string
	FirstUserMessage string
}

// DiscoverOptions filters Discover/ListSessions.
type DiscoverOptions struct {
	MinMessages     int
	ExcludeEmpty    bool
	IncludeDeleted  bool
	IncludeArchived bool
	ArchivedOnly    bool
}

// Facade composes the Index Store and the Sync Engine behind one typed
// API.
type Facade struct {
	Store *sqlite.Store
	Sync  *sync.Engine
	Root  string
}

func New(store *sqlite.Store, engine *sync.Engine, root string) *Facade {
	return &Facade{Store: store, Sync: engine, Root: root}
}

func resolveTitle(row sqlite.FileRow) string {
	if row.HasTitle && row.Title != "" {
		return row.Title
	}
	if row.FirstUserMessage != "" {
		return row.FirstUserMessage
	}
	if row.AutoSlug != "" {
		return row.AutoSlug
	}
	if len(row.SessionID) >= 8 {
		return row.SessionID[:8]
	}
	return row.SessionID
}

func toSummary(row sqlite.FileRow) Summary {
	return Summary{
		SessionID:        row.SessionID,
		FilePath:         row.FilePath,
		WorkingDirectory: pathcodec.Decode(row.EncodedDir),
		CreatedAt:        row.CreatedAt,
		LastAccessedAt:   row.LastAccessedAt,
		TotalMessages:    row.TotalMessages,
		Model:            row.Model,
		GitBranch:        row.GitBranch,
		IsArchived:       row.IsArchived,
		IsDeleted:        row.IsDeleted,
		Title:            resolveTitle(row),
		FirstUserMessage: row.FirstUserMessage,
	}
}

// Discover is an index-first listing; on a storage failure it falls back
// transparently to a slow filesystem scan via one full sync cycle.
func (f *Facade) Discover(ctx context.Context, opts DiscoverOptions) ([]Summary, error) {
	rows, err := f.Store.ListSessions(ctx, sqlite.ListFilter{
		MinMessages: opts.MinMessages, ExcludeEmpty: opts.ExcludeEmpty,
		IncludeDeleted: opts.IncludeDeleted, IncludeArchived: opts.IncludeArchived, ArchivedOnly: opts.ArchivedOnly,
	})
	if err != nil {
		if _, syncErr := f.Sync.Cycle(ctx); syncErr != nil {
			return nil, fmt.Errorf("discover sessions (index and fallback scan both failed): %w", err)
		}
		rows, err = f.Store.ListSessions(ctx, sqlite.ListFilter{
			MinMessages: opts.MinMessages, ExcludeEmpty: opts.ExcludeEmpty,
			IncludeDeleted: opts.IncludeDeleted, IncludeArchived: opts.IncludeArchived, ArchivedOnly: opts.ArchivedOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("discover sessions after fallback scan: %w", err)
		}
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSummary(row))
	}
	return out, nil
}

// Find resolves a query to a single session using the priority order:
// exact id, exact slug, id prefix, case-insensitive substring over slug,
// case-insensitive substring over title.
func (f *Facade) Find(ctx context.Context, query string) (Summary, error) {
	rows, err := f.Store.ListSessions(ctx, sqlite.ListFilter{IncludeArchived: true})
	if err != nil {
		return Summary{}, fmt.Errorf("find %q: %w", query, err)
	}

	for _, row := range rows {
		if row.SessionID == query {
			return toSummary(row), nil
		}
	}
	for _, row := range rows {
		if row.AutoSlug == query {
			return toSummary(row), nil
		}
	}
	for _, row := range rows {
		if strings.HasPrefix(row.SessionID, query) {
			return toSummary(row), nil
		}
	}
	lower := strings.ToLower(query)
	for _, row := range rows {
		if strings.Contains(strings.ToLower(row.AutoSlug), lower) {
			return toSummary(row), nil
		}
	}
	for _, row := range rows {
		if strings.Contains(strings.ToLower(resolveTitle(row)), lower) {
			return toSummary(row), nil
		}
	}
	return Summary{}, fmt.Errorf("find %q: %w", query, ErrNotFound)
}

// Archive sets the archive overlay.
func (f *Facade) Archive(ctx context.Context, sessionID string) error {
	if err := f.Store.SetArchived(ctx, sessionID, true, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive session %s: %w", sessionID, err)
	}
	return nil
}

// Unarchive clears the archive overlay.
func (f *Facade) Unarchive(ctx context.Context, sessionID string) error {
	if err := f.Store.SetArchived(ctx, sessionID, false, time.Time{}); err != nil {
		return fmt.Errorf("unarchive session %s: %w", sessionID, err)
	}
	return nil
}

// Rename sets the custom title overlay.
func (f *Facade) Rename(ctx context.Context, sessionID, title string) error {
	if err := f.Store.SetTitle(ctx, sessionID, title, time.Now().UTC()); err != nil {
		return fmt.Errorf("rename session %s: %w", sessionID, err)
	}
	return nil
}

// Move relocates a session's transcript to a new working directory.
func (f *Facade) Move(ctx context.Context, sessionID, newWorkingDir string) error {
	if err := f.Sync.Move(ctx, sessionID, newWorkingDir); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return fmt.Errorf("move session %s: %w", sessionID, ErrNotFound)
		}
		return fmt.Errorf("move session %s: %w", sessionID, err)
	}
	return nil
}

// Delete hard-removes a session from the index (not the transcript file;
// callers that also want the file gone must remove it separately and let
// the next sync observe the deletion).
func (f *Facade) Delete(ctx context.Context, sessionID string) error {
	if _, err := f.Store.DeleteSessionByKey(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Search runs a full-text query, most relevant session first.
func (f *Facade) Search(ctx context.Context, query string, limits sqlite.SearchLimits) ([]sqlite.SearchResult, error) {
	results, err := f.Store.Search(ctx, query, limits)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return results, nil
}
