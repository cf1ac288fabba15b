package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
)

// Rebuild snapshots archive overlays, wipes message and file rows, runs a
// full sync, then restores archive flags by session id. Custom titles are
// untouched throughout: they live in a table the wipe never touches.
func (e *Engine) Rebuild(ctx context.Context) (Tally, error) {
	rows, err := e.Store.ListSessions(ctx, sqlite.ListFilter{IncludeDeleted: true, IncludeArchived: true})
	if err != nil {
		return Tally{}, fmt.Errorf("snapshot archive overlays: %w", err)
	}
	archived := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		if row.IsArchived {
			archived[row.SessionID] = row.ArchivedAt
		}
	}

	for _, row := range rows {
		if _, err := e.Store.DeleteSessionByKey(ctx, row.SessionID); err != nil {
			return Tally{}, fmt.Errorf("wipe file row for session %s: %w", row.SessionID, err)
		}
	}

	tally, err := e.Cycle(ctx)
	if err != nil {
		return tally, fmt.Errorf("full sync during rebuild: %w", err)
	}

	for sessionID, at := range archived {
		if err := e.Store.SetArchived(ctx, sessionID, true, at); err != nil {
			// The session may no longer exist on disk; that is not a
			// rebuild failure, just a flag with nothing left to attach to.
			continue
		}
	}

	return tally, nil
}
