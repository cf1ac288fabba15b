package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
)

func mustNow() time.Time { return time.Now().UTC() }

func setupRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "projects", "-tmp-a"), 0755))
	return root
}

func writeSession(t *testing.T, root, dir, sessionID string, body string) string {
	t.Helper()
	path := filepath.Join(root, "projects", dir, sessionID+".jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newEngine(t *testing.T, root string) *Engine {
	t.Helper()
	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return New(store, root)
}

const sessionBody = `{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","cwd":"/tmp/a","message":{"content":"hello"}}
{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"assistant","cwd":"/tmp/a","message":{"content":"hi"}}
`

func TestFirstSyncIndexesNewFiles(t *testing.T) {
	root := setupRoot(t)
	writeSession(t, root, "-tmp-a", "s1", sessionBody)
	e := newEngine(t, root)

	tally, err := e.Cycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tally.Added)

	sessions, err := e.Store.ListSessions(context.Background(), sqlite.ListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, 2, sessions[0].TotalMessages)
}

func TestResyncWithNoChangesIsAllUnchanged(t *testing.T) {
	root := setupRoot(t)
	writeSession(t, root, "-tmp-a", "s1", sessionBody)
	e := newEngine(t, root)

	_, err := e.Cycle(context.Background())
	require.NoError(t, err)

	tally, err := e.Cycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, Tally{Added: 0, Updated: 0, Deleted: 0, Unchanged: 1, Duration: tally.Duration}, tally)
}

func TestSoftDeleteAndRestoreCycle(t *testing.T) {
	root := setupRoot(t)
	path := writeSession(t, root, "-tmp-a", "s1", sessionBody)
	e := newEngine(t, root)
	ctx := context.Background()

	_, err := e.Cycle(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	tally, err := e.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tally.Deleted)

	sessions, err := e.Store.ListSessions(ctx, sqlite.ListFilter{IncludeDeleted: false})
	require.NoError(t, err)
	require.Empty(t, sessions)

	writeSession(t, root, "-tmp-a", "s1", sessionBody)
	tally, err = e.Cycle(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, tally.Updated)

	sessions, err = e.Store.ListSessions(ctx, sqlite.ListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.False(t, sessions[0].IsArchived)
}

func TestMoveSessionRewritesCwdAndReindexes(t *testing.T) {
	root := setupRoot(t)
	writeSession(t, root, "-tmp-a", "s1", sessionBody)
	e := newEngine(t, root)
	ctx := context.Background()

	_, err := e.Cycle(ctx)
	require.NoError(t, err)

	require.NoError(t, e.Move(ctx, "s1", "/tmp/new"))

	sessions, err := e.Store.ListSessions(ctx, sqlite.ListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Contains(t, sessions[0].FilePath, "-tmp-new")

	data, err := os.ReadFile(sessions[0].FilePath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"cwd":"/tmp/new"`)
}

func TestRebuildPreservesTitlesAndArchive(t *testing.T) {
	root := setupRoot(t)
	writeSession(t, root, "-tmp-a", "s1", sessionBody)
	e := newEngine(t, root)
	ctx := context.Background()

	_, err := e.Cycle(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Store.SetArchived(ctx, "s1", true, mustNow()))
	require.NoError(t, e.Store.SetTitle(ctx, "s1", "custom", mustNow()))

	_, err = e.Rebuild(ctx)
	require.NoError(t, err)

	sessions, err := e.Store.ListSessions(ctx, sqlite.ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.True(t, sessions[0].IsArchived)
	require.Equal(t, "custom", sessions[0].Title)
}
