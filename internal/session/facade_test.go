package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvid/transcriptkeeper/internal/store/sqlite"
	"github.com/corvid/transcriptkeeper/internal/sync"
)

const body = `{"uuid":"r1","sessionId":"s1","timestamp":"2024-01-01T00:00:00Z","type":"user","cwd":"/tmp/a","message":{"content":"hello world"}}
{"uuid":"r2","sessionId":"s1","timestamp":"2024-01-01T00:00:01Z","type":"assistant","cwd":"/tmp/a","message":{"content":"hi"}}
`

func setupFacade(t *testing.T) (*Facade, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "projects", "-tmp-a")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s1.jsonl"), []byte(body), 0644))

	store, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := sync.New(store, root)
	_, err = engine.Cycle(context.Background())
	require.NoError(t, err)

	return New(store, engine, root), root
}

func TestDiscoverReturnsIndexedSessions(t *testing.T) {
	f, _ := setupFacade(t)
	summaries, err := f.Discover(context.Background(), DiscoverOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "hello world", summaries[0].Title)
}

func TestFindByIDPrefix(t *testing.T) {
	f, _ := setupFacade(t)
	found, err := f.Find(context.Background(), "s")
	require.NoError(t, err)
	require.Equal(t, "s1", found.SessionID)
}

func TestFindUnknownReturnsNotFound(t *testing.T) {
	f, _ := setupFacade(t)
	_, err := f.Find(context.Background(), "does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestArchiveRenameAndUnarchive(t *testing.T) {
	f, _ := setupFacade(t)
	ctx := context.Background()

	require.NoError(t, f.Archive(ctx, "s1"))
	require.NoError(t, f.Rename(ctx, "s1", "renamed"))

	summaries, err := f.Discover(ctx, DiscoverOptions{IncludeArchived: true})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.True(t, summaries[0].IsArchived)
	require.Equal(t, "renamed", summaries[0].Title)

	require.NoError(t, f.Unarchive(ctx, "s1"))
	summaries, err = f.Discover(ctx, DiscoverOptions{})
	require.NoError(t, err)
	require.False(t, summaries[0].IsArchived)
}

func TestSearchFindsIndexedText(t *testing.T) {
	f, _ := setupFacade(t)
	results, err := f.Search(context.Background(), "hello", sqlite.SearchLimits{})
	require.NoError(t, err)
	require.Len(t, results, 1)
}
