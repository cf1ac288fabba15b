package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func totalsOf(total, user, assistant, in, out int, model, branch, slug, first string) struct {
	Total, User, Assistant, InputTokens, OutputTokens int
	Model, GitBranch, AutoSlug, FirstUserMessage      string
} {
	return struct {
		Total, User, Assistant, InputTokens, OutputTokens int
		Model, GitBranch, AutoSlug, FirstUserMessage      string
	}{total, user, assistant, in, out, model, branch, slug, first}
}

func TestUpsertAndListSessions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.UpsertFile(ctx, FileInfo{
		Path: "/tmp/a/s1.jsonl", SessionID: "s1", EncodedDir: "-tmp-a", MtimeMS: 1, SizeBytes: 100,
	}, now, now, now, totalsOf(2, 1, 1, 3, 5, "claude-x", "main", "hello-world", "hello"),
		[]MessageInput{
			{RecordID: "r1", LineNumber: 1, Timestamp: now, Role: "user", Content: "hello"},
			{RecordID: "r2", LineNumber: 2, Timestamp: now, Role: "assistant", Content: "hi"},
		}, nil)
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, "s1", sessions[0].SessionID)
	require.Equal(t, 2, sessions[0].TotalMessages)
}

func TestSoftDeleteAndRestore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rowID, err := store.UpsertFile(ctx, FileInfo{
		Path: "/tmp/a/s1.jsonl", SessionID: "s1", EncodedDir: "-tmp-a", MtimeMS: 1, SizeBytes: 100,
	}, now, now, now, totalsOf(0, 0, 0, 0, 0, "", "", "", ""), nil, nil)
	require.NoError(t, err)

	require.NoError(t, store.MarkDeleted(ctx, rowID, now))
	sessions, err := store.ListSessions(ctx, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, sessions)

	require.NoError(t, store.MarkRestored(ctx, rowID))
	sessions, err = store.ListSessions(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.False(t, sessions[0].IsDeleted)
}

func TestArchiveSurvivesDeleteAndReinsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.UpsertFile(ctx, FileInfo{
		Path: "/tmp/a/s1.jsonl", SessionID: "s1", EncodedDir: "-tmp-a", MtimeMS: 1, SizeBytes: 100,
	}, now, now, now, totalsOf(0, 0, 0, 0, 0, "", "", "", ""), nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.SetArchived(ctx, "s1", true, now))
	require.NoError(t, store.SetTitle(ctx, "s1", "my title", now))

	overlays, err := store.DeleteSessionByKey(ctx, "s1")
	require.NoError(t, err)
	require.True(t, overlays.IsArchived)
	require.True(t, overlays.HasTitle)
	require.Equal(t, "my title", overlays.Title)

	_, err = store.UpsertFile(ctx, FileInfo{
		Path: "/tmp/b/s1.jsonl", SessionID: "s1", EncodedDir: "-tmp-b", MtimeMS: 2, SizeBytes: 120,
	}, now, now, now, totalsOf(0, 0, 0, 0, 0, "", "", "", ""), nil, overlays)
	require.NoError(t, err)

	fr, err := store.GetFileBySessionID(ctx, "s1")
	require.NoError(t, err)
	require.True(t, fr.IsArchived)
	require.Equal(t, "my title", fr.Title)
	require.Equal(t, "/tmp/b/s1.jsonl", fr.FilePath)
}

func TestSearchFindsMessageContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := store.UpsertFile(ctx, FileInfo{
		Path: "/tmp/a/s1.jsonl", SessionID: "s1", EncodedDir: "-tmp-a", MtimeMS: 1, SizeBytes: 100,
	}, now, now, now, totalsOf(2, 1, 1, 0, 0, "", "", "", "hello"), []MessageInput{
		{RecordID: "r1", LineNumber: 1, Timestamp: now, Role: "user", Content: "hello there"},
		{RecordID: "r2", LineNumber: 2, Timestamp: now, Role: "assistant", Content: "general greeting"},
	}, nil)
	require.NoError(t, err)

	results, err := store.Search(ctx, "hello", SearchLimits{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "s1", results[0].SessionID)
	require.Len(t, results[0].Matches, 1)
}

func TestSearchWhitespaceQueryReturnsEmptyNotError(t *testing.T) {
	store := setupTestStore(t)
	results, err := store.Search(context.Background(), "   ", SearchLimits{})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, RunMigrations(store.db))
	require.NoError(t, RunMigrations(store.db))
}
